package models

import "github.com/google/uuid"

// ActionRecord is one entry of a session's action log, consumed by the historian.
type ActionRecord struct {
	SessionID     uuid.UUID              `json:"session_id"`
	ActionIndex   int                    `json:"action_index"`
	Actor         string                 `json:"actor"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}
