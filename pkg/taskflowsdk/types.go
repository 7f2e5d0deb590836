package taskflowsdk

import "time"

// ============================================================================
// Requests
// ============================================================================

type RegisterRequest struct {
	Name     string `json:"name" example:"Ann Lee"`
	Email    string `json:"email" example:"ann@x.com"`
	Password string `json:"password" example:"secret1"`
}

type LoginRequest struct {
	Email    string `json:"email" example:"ann@x.com"`
	Password string `json:"password" example:"secret1"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" example:"ann@x.com"`
}

// PasswordRequest completes a password reset.
type PasswordRequest struct {
	Password string `json:"password"`
}

// AdminPasswordRequest sets a temporary password. UserID is only read by
// POST /api/admin/users/reset-password; the other route takes it from the path.
type AdminPasswordRequest struct {
	UserID      string `json:"userId,omitempty"`
	NewPassword string `json:"newPassword"`
}

type UpdateRoleRequest struct {
	Role string `json:"role" enums:"user,admin"`
}

type BootstrapRequest struct {
	Token    string `json:"token"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TaskRequest creates or updates a task. On update, omitted fields keep
// their stored values and an empty assignedTo unassigns.
type TaskRequest struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Status      *string   `json:"status,omitempty" enums:"pending,in-progress,completed"`
	AssignedTo  *string   `json:"assignedTo,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
}

type CommentRequest struct {
	Content string `json:"content"`
}

// TaskQuery filters ListTasks.
type TaskQuery struct {
	Status     string
	AssignedTo string
	Search     string
}

// ============================================================================
// Resources
// ============================================================================

type User struct {
	ID                     string    `json:"id"`
	Name                   string    `json:"name"`
	Email                  string    `json:"email"`
	Role                   string    `json:"role"`
	ForcePasswordChange    bool      `json:"forcePasswordChange"`
	PasswordResetRequested bool      `json:"passwordResetRequested"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedBy   UserRef   `json:"createdBy"`
	AssignedTo  *UserRef  `json:"assignedTo,omitempty"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Comment struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"taskId"`
	User      UserRef   `json:"user"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ============================================================================
// Responses
// ============================================================================

type AuthResponse struct {
	User                User   `json:"user"`
	Token               string `json:"token"`
	ForcePasswordChange bool   `json:"forcePasswordChange"`
}

type UserResponse struct {
	User User `json:"user"`
}

type UsersResponse struct {
	Users []User `json:"users"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type RoleUpdateResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
}

// ResetLinkResponse carries the token and link only outside production.
type ResetLinkResponse struct {
	Message   string `json:"message"`
	EmailSent bool   `json:"emailSent"`
	Token     string `json:"token,omitempty"`
	ResetURL  string `json:"resetUrl,omitempty"`
}

type ForgotPasswordResponse struct {
	Message  string `json:"message"`
	Token    string `json:"token,omitempty"`
	ResetURL string `json:"resetUrl,omitempty"`
}

type VerifyResetResponse struct {
	Valid bool `json:"valid"`
}

type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}

type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// String returns a pointer to s, for TaskRequest fields.
func String(s string) *string { return &s }

// Strings returns a pointer to tags, for TaskRequest.Tags.
func Strings(tags ...string) *[]string {
	if tags == nil {
		tags = []string{}
	}
	return &tags
}
