package agencykit

import (
	"time"

	"github.com/uptrace/bun"
)

// Record is any persisted row that the access layer can gate.
type Record interface {
	// Kind is the resource kind checked against the permission table.
	Kind() ResourceKind
	GetID() string
	SetID(id string)
}

// Client is a customer organisation.
type Client struct {
	bun.BaseModel `bun:"table:clients,alias:cl"`

	ID        string    `bun:"id,pk" json:"id"`
	Name      string    `bun:"name,notnull" json:"name" validate:"required,max=200"`
	Email     string    `bun:"email,notnull" json:"email" validate:"required,email"`
	Company   string    `bun:"company" json:"company" validate:"max=200"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"-"`
}

// Employee is a member of staff. Employee actors and project members
// reference it by ID.
type Employee struct {
	bun.BaseModel `bun:"table:employees,alias:em"`

	ID        string    `bun:"id,pk" json:"id"`
	Name      string    `bun:"name,notnull" json:"name" validate:"required,max=200"`
	Email     string    `bun:"email,notnull" json:"email" validate:"required,email"`
	JobTitle  string    `bun:"job_title" json:"jobTitle" validate:"max=200"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"-"`
}

// Project statuses.
const (
	ProjectActive    = "Active"
	ProjectCompleted = "Completed"
	ProjectOnHold    = "On Hold"
)

// Project is owned by a client and staffed by employees.
type Project struct {
	bun.BaseModel `bun:"table:projects,alias:pr"`

	ID        string    `bun:"id,pk" json:"id"`
	Name      string    `bun:"name,notnull" json:"name" validate:"required,max=200"`
	ClientID  string    `bun:"client_id,notnull" json:"clientId" validate:"required"`
	Status    string    `bun:"status,notnull" json:"status" validate:"required,oneof=Active Completed 'On Hold'"`
	Deadline  string    `bun:"deadline" json:"deadline" validate:"omitempty,datetime=2006-01-02"`
	MemberIDs []string  `bun:"member_ids,type:text[]" json:"memberIds"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"-"`
}

// HasMember reports whether the employee is assigned to the project.
func (p Project) HasMember(employeeID string) bool {
	for _, id := range p.MemberIDs {
		if id == employeeID {
			return true
		}
	}
	return false
}

// Task priorities and statuses.
const (
	PriorityHigh   = "High"
	PriorityMedium = "Medium"
	PriorityLow    = "Low"

	TaskToDo       = "To Do"
	TaskInProgress = "In Progress"
	TaskDone       = "Done"
)

// Task is a unit of work in a project, assigned to one employee.
type Task struct {
	bun.BaseModel `bun:"table:tasks,alias:tk"`

	ID         string    `bun:"id,pk" json:"id"`
	Title      string    `bun:"title,notnull" json:"title" validate:"required,max=300"`
	ProjectID  string    `bun:"project_id,notnull" json:"projectId" validate:"required"`
	Priority   string    `bun:"priority,notnull" json:"priority" validate:"required,oneof=High Medium Low"`
	Status     string    `bun:"status,notnull" json:"status" validate:"required,oneof='To Do' 'In Progress' Done"`
	DueDate    string    `bun:"due_date" json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
	AssigneeID string    `bun:"assignee_id" json:"assigneeId"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"-"`
}

// Invoice statuses.
const (
	InvoiceDraft   = "Draft"
	InvoiceSent    = "Sent"
	InvoicePaid    = "Paid"
	InvoiceOverdue = "Overdue"
)

// Invoice bills a client for a project.
type Invoice struct {
	bun.BaseModel `bun:"table:invoices,alias:iv"`

	ID            string    `bun:"id,pk" json:"id"`
	InvoiceNumber string    `bun:"invoice_number,notnull" json:"invoiceNumber" validate:"required,max=50"`
	ProjectID     string    `bun:"project_id,notnull" json:"projectId" validate:"required"`
	Amount        float64   `bun:"amount,notnull" json:"amount" validate:"gte=0"`
	Status        string    `bun:"status,notnull" json:"status" validate:"required,oneof=Draft Sent Paid Overdue"`
	IssueDate     string    `bun:"issue_date" json:"issueDate" validate:"omitempty,datetime=2006-01-02"`
	DueDate       string    `bun:"due_date" json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"-"`
}

// AwaitingPayment reports whether the invoice is sent or overdue.
func (i Invoice) AwaitingPayment() bool {
	return i.Status == InvoiceSent || i.Status == InvoiceOverdue
}

// Folder groups documents.
type Folder struct {
	bun.BaseModel `bun:"table:folders,alias:fo"`

	ID        string    `bun:"id,pk" json:"id"`
	Name      string    `bun:"name,notnull" json:"name" validate:"required,max=200"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"-"`
}

// Document is a text document stored in a folder.
type Document struct {
	bun.BaseModel `bun:"table:documents,alias:dc"`

	ID        string    `bun:"id,pk" json:"id"`
	Name      string    `bun:"name,notnull" json:"name" validate:"required,max=200"`
	Content   string    `bun:"content" json:"content"`
	FolderID  string    `bun:"folder_id,notnull" json:"folderId" validate:"required"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"-"`
}

// User is a login account. Its role and entity reference become the Actor.
type User struct {
	bun.BaseModel `bun:"table:users,alias:us"`

	ID           string    `bun:"id,pk" json:"id"`
	Username     string    `bun:"username,notnull,unique" json:"username" validate:"required,max=100"`
	Name         string    `bun:"name,notnull" json:"name" validate:"required,max=200"`
	Role         Role      `bun:"role,notnull" json:"role" validate:"required,oneof=Admin HR Sales Employee Client"`
	EntityID     string    `bun:"entity_id,notnull" json:"entityId" validate:"required"`
	PasswordHash string    `bun:"password_hash,notnull" json:"-"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"-"`
}

// Actor converts the account into the identity used for decisions.
func (u *User) Actor() *Actor {
	return &Actor{
		UserID:   u.ID,
		Username: u.Username,
		Name:     u.Name,
		Role:     u.Role,
		EntityID: u.EntityID,
	}
}

func (c *Client) Kind() ResourceKind   { return KindClient }
func (c *Client) GetID() string        { return c.ID }
func (c *Client) SetID(id string)      { c.ID = id }
func (e *Employee) Kind() ResourceKind { return KindEmployee }
func (e *Employee) GetID() string      { return e.ID }
func (e *Employee) SetID(id string)    { e.ID = id }
func (p *Project) Kind() ResourceKind  { return KindProject }
func (p *Project) GetID() string       { return p.ID }
func (p *Project) SetID(id string)     { p.ID = id }
func (t *Task) Kind() ResourceKind     { return KindTask }
func (t *Task) GetID() string          { return t.ID }
func (t *Task) SetID(id string)        { t.ID = id }
func (i *Invoice) Kind() ResourceKind  { return KindInvoice }
func (i *Invoice) GetID() string       { return i.ID }
func (i *Invoice) SetID(id string)     { i.ID = id }
func (d *Document) Kind() ResourceKind { return KindDocument }
func (d *Document) GetID() string      { return d.ID }
func (d *Document) SetID(id string)    { d.ID = id }

// Folders are managed with the Document capability.
func (f *Folder) Kind() ResourceKind { return KindDocument }
func (f *Folder) GetID() string      { return f.ID }
func (f *Folder) SetID(id string)    { f.ID = id }

// AccessAuditLog records every gated write, allowed or denied.
type AccessAuditLog struct {
	bun.BaseModel `bun:"table:access_audit_log,alias:aal"`

	ID        string    `bun:"id,pk,type:uuid,nullzero,default:gen_random_uuid()" json:"id"`
	Timestamp time.Time `bun:"timestamp,nullzero,notnull,default:current_timestamp" json:"timestamp"`

	// Who performed the action
	ActorID   string `bun:"actor_id,notnull" json:"actorId"`
	ActorRole string `bun:"actor_role,notnull" json:"actorRole"`
	EntityID  string `bun:"entity_id" json:"entityId"`

	// What was attempted and on which row
	Action   string `bun:"action,notnull" json:"action"` // "create", "update", "delete"
	Kind     string `bun:"kind,notnull" json:"kind"`
	RecordID string `bun:"record_id" json:"recordId"`
	Outcome  string `bun:"outcome,notnull" json:"outcome"` // "allowed", "denied", "hidden"

	// Request metadata for forensics
	IPAddress string `bun:"ip_address" json:"ipAddress"`
	UserAgent string `bun:"user_agent" json:"userAgent"`
	RequestID string `bun:"request_id" json:"requestId"`

	Metadata map[string]any `bun:"metadata,type:jsonb" json:"metadata,omitempty"`
}

// AuditOutcome is the result recorded for a gated write.
type AuditOutcome string

const (
	OutcomeAllowed AuditOutcome = "allowed"
	OutcomeDenied  AuditOutcome = "denied" // capability gate refused
	OutcomeHidden  AuditOutcome = "hidden" // visibility gate refused
)

// IsValid reports whether o is one of the recorded outcomes.
func (o AuditOutcome) IsValid() bool {
	switch o {
	case OutcomeAllowed, OutcomeDenied, OutcomeHidden:
		return true
	}
	return false
}

// AuditEntry is used to create new audit log entries.
type AuditEntry struct {
	Actor     *Actor
	Action    Action
	Kind      ResourceKind
	RecordID  string
	Outcome   AuditOutcome
	IPAddress string
	UserAgent string
	RequestID string
	Metadata  map[string]any
}

// ToModel converts an AuditEntry to an AccessAuditLog model.
func (e *AuditEntry) ToModel() *AccessAuditLog {
	m := &AccessAuditLog{
		Action:    string(e.Action),
		Kind:      string(e.Kind),
		RecordID:  e.RecordID,
		Outcome:   string(e.Outcome),
		IPAddress: e.IPAddress,
		UserAgent: e.UserAgent,
		RequestID: e.RequestID,
		Metadata:  e.Metadata,
		Timestamp: time.Now(),
	}
	if e.Actor != nil {
		m.ActorID = e.Actor.UserID
		m.ActorRole = string(e.Actor.Role)
		m.EntityID = e.Actor.EntityID
	}
	return m
}
