// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import "time"

// Roles known to the vault service.
const (
	RoleAdmin    = "admin"
	RoleUser     = "user"
	RoleReadonly = "readonly"
)

// UserInfo is the current-user snapshot returned by the service.
type UserInfo struct {
	ID          uint       `json:"id"`
	UUID        string     `json:"uuid"`
	Username    string     `json:"username"`
	Status      string     `json:"status"`
	Role        string     `json:"role"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// SecurityPinStatus reports whether the user has enrolled a security PIN.
type SecurityPinStatus struct {
	HasSecurityPin bool `json:"has_security_pin"`
}

// =============================================================================
// AUTH
// =============================================================================

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string    `json:"token"`
	User  *UserInfo `json:"user"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Code     string `json:"code"`
	Nickname string `json:"nickname,omitempty"`
}

type RegisterResponse struct {
	User *UserInfo `json:"user"`
}

type RefreshResponse struct {
	Token string `json:"token"`
}

type PasswordResetRequest struct {
	Email  string `json:"email"`
	Domain string `json:"domain,omitempty"`
}

type ResetPasswordWithTokenRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type ResetTokenStatus struct {
	Valid bool `json:"valid"`
}

type ResetSecurityPinRequest struct {
	RecoveryMnemonic string `json:"recovery_mnemonic"`
	NewSecurityPin   string `json:"new_security_pin"`
}

type ResetSecurityPinResponse struct {
	NewRecoveryMnemonic string `json:"new_recovery_mnemonic"`
}

// MessageResponse is returned by endpoints that only acknowledge.
type MessageResponse struct {
	Message string `json:"message"`
}

// =============================================================================
// SECRETS AND KEYS
// =============================================================================

// SecretType values accepted by the service.
const (
	SecretAPIKey       = "api_key"
	SecretDBCredential = "db_credential"
	SecretCertificate  = "certificate"
	SecretSSHKey       = "ssh_key"
	SecretToken        = "token"
	SecretPassword     = "password"
	SecretOther        = "other"
)

// SecretTypes lists every secret type in display order.
var SecretTypes = []string{
	SecretAPIKey, SecretDBCredential, SecretCertificate,
	SecretSSHKey, SecretToken, SecretPassword, SecretOther,
}

type SecretMetadata struct {
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
	Tags      []string       `json:"tags,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

type Secret struct {
	ID             uint            `json:"id"`
	UserUUID       string          `json:"user_uuid"`
	SecretUUID     string          `json:"secret_uuid"`
	SecretName     string          `json:"secret_name"`
	SecretType     string          `json:"secret_type"`
	Description    string          `json:"description,omitempty"`
	DEKVersion     int             `json:"dek_version"`
	Metadata       *SecretMetadata `json:"metadata,omitempty"`
	LastAccessedAt *time.Time      `json:"last_accessed_at,omitempty"`
	AccessCount    int64           `json:"access_count"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type DecryptedSecret struct {
	Secret
	PlainData string `json:"plain_data"`
}

type CreateSecretRequest struct {
	SecurityPin string          `json:"security_pin"`
	SecretName  string          `json:"secret_name"`
	SecretType  string          `json:"secret_type"`
	PlainData   string          `json:"plain_data"`
	Description string          `json:"description,omitempty"`
	Metadata    *SecretMetadata `json:"metadata,omitempty"`
}

type ListSecretsRequest struct {
	SecretType string
	Page       int
	PageSize   int
}

type SecretList struct {
	Secrets    []Secret `json:"secrets"`
	Total      int64    `json:"total"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
	TotalPages int      `json:"total_pages"`
}

type EncryptionKey struct {
	UserUUID     string    `json:"user_uuid"`
	KEKAlgorithm string    `json:"kek_algorithm"`
	DEKVersion   int       `json:"dek_version"`
	DEKAlgorithm string    `json:"dek_algorithm"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CreateKeyResponse struct {
	UserEncryptionKey *EncryptionKey `json:"user_encryption_key"`
	RecoveryKey       string         `json:"recovery_key,omitempty"`
}

type RecoveryCheck struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

type RotateKeyResponse struct {
	UserEncryptionKey *EncryptionKey `json:"user_encryption_key"`
	Message           string         `json:"message"`
}

type RotationStatus struct {
	UserUUID        string     `json:"user_uuid"`
	OldVersion      int        `json:"old_version"`
	NewVersion      int        `json:"new_version"`
	TotalSecrets    int64      `json:"total_secrets"`
	MigratedSecrets int64      `json:"migrated_secrets"`
	FailedSecrets   int64      `json:"failed_secrets"`
	Status          string     `json:"status"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Error           string     `json:"error,omitempty"`
}

// =============================================================================
// USERS, PROFILES, AUDIT, STATISTICS, CONFIG
// =============================================================================

type UserList struct {
	Users    []UserInfo `json:"users"`
	Total    int64      `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
}

type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type UpdateUserRequest struct {
	Status string `json:"status,omitempty"`
	Role   string `json:"role,omitempty"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type Profile struct {
	ID            uint      `json:"id,omitempty"`
	UserID        uint      `json:"user_id,omitempty"`
	Nickname      string    `json:"nickname"`
	Phone         string    `json:"phone,omitempty"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
	UpdatedAt     time.Time `json:"updated_at,omitempty"`
}

type ProfileList struct {
	Profiles []Profile `json:"profiles"`
	Total    int64     `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}

type AuditQuery struct {
	UserUUID     string
	ActionType   string
	ResourceType string
	Status       string
	StartTime    time.Time
	EndTime      time.Time
	Page         int
	PageSize     int
}

type AuditLog struct {
	UUID         string    `json:"uuid"`
	UserUUID     string    `json:"user_uuid"`
	Username     string    `json:"username"`
	ActionType   string    `json:"action_type"`
	ResourceType string    `json:"resource_type"`
	ResourceUUID string    `json:"resource_uuid,omitempty"`
	ResourceName string    `json:"resource_name,omitempty"`
	Status       string    `json:"status"`
	ErrorCode    int       `json:"error_code,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	IPAddress    string    `json:"ip_address,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type AuditLogList struct {
	Total    int64      `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
	Logs     []AuditLog `json:"logs"`
}

type SecretsExport struct {
	TotalSecrets int64            `json:"total_secrets"`
	ByType       map[string]int64 `json:"by_type"`
}

type OperationsExport struct {
	TotalOperations int64            `json:"total_operations"`
	ByAction        map[string]int64 `json:"by_action"`
}

type CurrentStatistics struct {
	TotalSecrets     int64 `json:"total_secrets"`
	APIKeyCount      int64 `json:"api_key_count"`
	PasswordCount    int64 `json:"password_count"`
	CertificateCount int64 `json:"certificate_count"`
	SSHKeyCount      int64 `json:"ssh_key_count"`
	PrivateKeyCount  int64 `json:"private_key_count"`
	OtherCount       int64 `json:"other_count"`
	TodayOperations  int64 `json:"today_operations"`
}

type DailyStatistics struct {
	StatDate        time.Time `json:"stat_date"`
	StatType        string    `json:"stat_type"`
	TotalSecrets    int       `json:"total_secrets"`
	CreateCount     int       `json:"create_count"`
	UpdateCount     int       `json:"update_count"`
	DeleteCount     int       `json:"delete_count"`
	AccessCount     int       `json:"access_count"`
	TotalOperations int       `json:"total_operations"`
	LoginCount      int       `json:"login_count"`
}

type SystemConfig struct {
	ID          uint      `json:"id,omitempty"`
	ConfigKey   string    `json:"config_key"`
	ConfigValue string    `json:"config_value"`
	Description string    `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

type ConfigUpdate struct {
	ConfigKey   string `json:"config_key"`
	ConfigValue string `json:"config_value"`
}
