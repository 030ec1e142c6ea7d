package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Role values for User.Role
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleUser       = "user"
)

// User is both a registrant (role "user") and an administrator
// (role "admin" / "super_admin"). Registrants usually arrive via
// spreadsheet import; admins are created through the API or seeder.
type User struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	FirstName     string `gorm:"index"`
	LastName      string `gorm:"index"`
	MiddleInitial string `gorm:"size:10"`
	Email         string
	ProfileImage  string
	Role          string `gorm:"default:user"` // super_admin | admin | user
	Password      string `json:"-"`            // bcrypt hash, admins only
	APIToken      string `gorm:"index" json:"-"`
	IsActive      bool   `gorm:"default:true"`

	Title        string
	MobileNumber string `gorm:"size:50"`

	HomeAddress   string
	ChurchName    string
	ChurchAddress string

	WorkingOrStudent *string // working | student | nil
	ModeOfPayment    *string // gcash | bank | cash | other | nil

	// Legacy comma-joined sphere IDs; the user_sphere pivot is authoritative.
	VocationWorkSphere *string

	ProofOfPaymentURL string
	Notes             string
	GroupID           *uint
	Group             *Group
	ReferenceNumber   string
	AgeRange          string

	Reconciled     bool
	FinanceChecked bool
	EmailConfirmed bool
	Attendance     bool
	IDIssued       bool
	BookGiven      bool

	// Which import file and row produced this record (resume bookkeeping).
	SourceSheet string `gorm:"index"`
	SourceRow   *int

	Spheres []Sphere   `gorm:"many2many:user_sphere"`
	Events  []Event    `gorm:"many2many:event_user"`
	Files   []UserFile `json:",omitempty"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) IsSuperAdmin() bool { return u.Role == RoleSuperAdmin }

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin || u.Role == RoleSuperAdmin }

// Sphere is a canonical vocational/ministry category. The set is seeded once;
// imports only resolve against it, never extend it.
type Sphere struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"not null"`
	Slug string `gorm:"uniqueIndex;not null"`

	Users []User `gorm:"many2many:user_sphere" json:",omitempty"`
}

// Group is a named organizational affiliation, get-or-created by name during
// import.
type Group struct {
	ID          uint `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Name        string `gorm:"uniqueIndex;not null"`
	Type        *string
	Description *string
}

// Event status values
const (
	EventUpcoming  = "upcoming"
	EventOngoing   = "ongoing"
	EventCompleted = "completed"
	EventCancelled = "cancelled"
)

type Event struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name        string `gorm:"not null"`
	Description string
	Location    string
	Status      string `gorm:"default:upcoming"` // upcoming | ongoing | completed | cancelled
	StartTime   *time.Time
	EndTime     *time.Time
	CreatedBy   *uint

	Users []User `gorm:"many2many:event_user" json:",omitempty"`
}

// ActivityLog is an append-only audit record; nothing in the system mutates
// or deletes rows once written.
type ActivityLog struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time

	AdminID    *uint
	Admin      *User `gorm:"foreignKey:AdminID" json:",omitempty"`
	Action     string
	EntityType string
	EntityID   uint
	OldValues  string // JSON snapshot
	NewValues  string // JSON snapshot
	IPAddress  string
	UserAgent  string
}

// UserFile is an uploaded attachment (proof of payment photos, IDs, etc.)
// stored on local disk under the configured upload directory.
type UserFile struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	UserID     uint `gorm:"index"`
	FileName   string
	FilePath   string
	FileType   string
	FileSize   int64
	UploadedBy *uint
}
