package logs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelPriority(t *testing.T) {
	assert.Equal(t, 8, LevelPriority(LevelEmergency))
	assert.Equal(t, 5, LevelPriority(LevelError))
	assert.Equal(t, 1, LevelPriority(LevelDebug))
	assert.Equal(t, 0, LevelPriority("fatal"))

	assert.Greater(t, LevelPriority(LevelCritical), LevelPriority(LevelWarning))
}

func TestValidLevel(t *testing.T) {
	assert.True(t, ValidLevel(LevelNotice))
	assert.False(t, ValidLevel("trace"))
	assert.False(t, ValidLevel(""))
}

func TestValidSource(t *testing.T) {
	assert.True(t, ValidSource(SourceJournald))
	assert.True(t, ValidSource(SourceCustom))
	assert.False(t, ValidSource("docker"))
	assert.False(t, ValidSource(""))
}

func TestSetID(t *testing.T) {
	e := &Entry{}
	e.SetID(42)
	assert.Equal(t, int64(42), e.ID)
}
