// Package models defines the durable entities and shared value types for Quire.
package models

import "time"

// FileStateRecord marks one file content as consumed by a pending pattern.
// Uniqueness is (ScopeKey, Pattern, ContentHash).
type FileStateRecord struct {
	ScopeKey    string    `json:"scope_key"`
	Pattern     string    `json:"pattern"`
	ContentHash string    `json:"content_hash"`
	DisplayPath string    `json:"display_path"`
	ProcessedAt time.Time `json:"processed_at"`
}

// CacheKey addresses the cached output of one section.
type CacheKey struct {
	SessionID    string `json:"session_id"`
	VaultName    string `json:"vault_name"`
	TemplateName string `json:"template_name"`
	SectionKey   string `json:"section_key"`
}

// CacheEntry is one appended row of section output history.
type CacheEntry struct {
	CacheKey
	TemplateHash string        `json:"template_hash"`
	CacheMode    string        `json:"cache_mode"`
	TTL          time.Duration `json:"ttl,omitempty"` // zero unless CacheMode is "duration"
	RawOutput    string        `json:"raw_output"`
	CreatedAt    time.Time     `json:"created_at"`
}

// FileRecord is a vault file materialised as directive input.
type FileRecord struct {
	Path    string    `json:"path"` // vault-relative, with extension
	Name    string    `json:"name"` // base name without extension
	Content string    `json:"content"`
	Hash    string    `json:"hash"`
	ModTime time.Time `json:"mod_time"`
}

// Turn is one prior message of a chat session or batch run history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	RunID   string `json:"run_id,omitempty"`
}

// Roles used in Turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)
