package dto

import "time"

type RegisterAgentRequest struct {
	Name         string                 `json:"name" binding:"required"`
	Hostname     string                 `json:"hostname" binding:"required"`
	IPAddress    string                 `json:"ip_address" binding:"required,ip"`
	Environment  string                 `json:"environment" binding:"required,oneof=development staging production"`
	Version      string                 `json:"version"`
	OSInfo       map[string]interface{} `json:"os_info"`
	Architecture string                 `json:"architecture"`
	Metadata     map[string]interface{} `json:"metadata"`
}

type RegisterAgentResponse struct {
	Success  bool   `json:"success"`
	AgentID  int64  `json:"agent_id"`
	APIToken string `json:"api_token"`
	Message  string `json:"message"`
}

type HeartbeatRequest struct {
	Status   string                 `json:"status" binding:"omitempty,oneof=active inactive error"`
	Metadata map[string]interface{} `json:"metadata"`
}

type HeartbeatResponse struct {
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
	ServerTime time.Time `json:"server_time"`
}

type AgentConfigResponse struct {
	Success bool                   `json:"success"`
	Config  map[string]interface{} `json:"config"`
	Agent   AgentSummary           `json:"agent"`
}

type AgentSummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Environment string `json:"environment"`
}

type AgentInfo struct {
	ID            int64                  `json:"id"`
	Name          string                 `json:"name"`
	Hostname      string                 `json:"hostname"`
	IPAddress     string                 `json:"ip_address"`
	Environment   string                 `json:"environment"`
	Status        string                 `json:"status"`
	Online        bool                   `json:"online"`
	LastHeartbeat *time.Time             `json:"last_heartbeat,omitempty"`
	Version       string                 `json:"version,omitempty"`
	Architecture  string                 `json:"architecture,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

type ListAgentsResponse struct {
	Agents []AgentInfo `json:"agents"`
	Count  int         `json:"count"`
}

type RotateTokenResponse struct {
	Success  bool   `json:"success"`
	AgentID  int64  `json:"agent_id"`
	APIToken string `json:"api_token"`
	Message  string `json:"message"`
}
