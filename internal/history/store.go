// Copyright 2025 Artisan Chat Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package history persists conversation turns for logged-in shoppers and
// records completed chat turns best-effort.
package history

import (
	"context"
	"time"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleUser marks a turn authored by the shopper
	RoleUser Role = "user"
	// RoleAssistant marks a turn authored by the assistant
	RoleAssistant Role = "assistant"
)

// Turn is a single message in a conversation. Turns are append-only: the
// service never edits or deletes an existing turn.
type Turn struct {
	ID        string                 `json:"id"`
	SessionID string                 `json:"session_id"`
	UserID    string                 `json:"user_id"`
	Role      Role                   `json:"role"`
	Message   string                 `json:"message"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// Store defines the interface for conversation storage backends.
type Store interface {
	// Append adds a turn to a session
	Append(ctx context.Context, turn *Turn) error
	// ListTurns returns a session's turns ordered by creation time
	ListTurns(ctx context.Context, sessionID string) ([]Turn, error)
	// Close closes the storage backend
	Close() error
}
