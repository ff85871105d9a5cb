package models

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Username    string     `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Email       string     `gorm:"index;size:254" json:"email"`
	FirstName   string     `gorm:"size:150" json:"first_name"`
	LastName    string     `gorm:"size:150" json:"last_name"`
	FullName    string     `gorm:"size:255" json:"full_name"`
	Role        Role       `gorm:"size:32;not null;default:'Student'" json:"role"`
	IsActive    bool       `gorm:"not null" json:"is_active"`
	IsSuperuser bool       `gorm:"not null;default:false" json:"-"`
	Password    string     `json:"-"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
}

// BeforeSave normalizes identity fields on every write.
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Normalize()
	return nil
}

// Normalize trims names, derives FullName, strips whitespace from the email
// and assigns an opaque username when none was supplied.
func (u *User) Normalize() {
	u.FirstName = strings.TrimSpace(u.FirstName)
	u.LastName = strings.TrimSpace(u.LastName)
	if u.FirstName != "" && u.LastName != "" {
		u.FullName = Capitalize(u.FirstName) + " " + Capitalize(u.LastName)
	} else {
		u.FullName = ""
	}
	u.Email = NormalizeEmail(u.Email)
	if u.Username == "" {
		u.Username = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleStudent
	}
}

// PromoteToSuperuser is the only way a user gains superuser privileges;
// the role follows.
func (u *User) PromoteToSuperuser() {
	u.IsSuperuser = true
	u.Role = RoleAdmin
}

func (u *User) IsStarosta() bool {
	return u.Role == RoleStarosta
}

func (u *User) SetPassword(password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

func (u *User) CheckPassword(password string) bool {
	if u.Password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}

// NormalizeEmail removes spaces and tabs anywhere in the address and lower-cases it.
func NormalizeEmail(email string) string {
	email = strings.NewReplacer(" ", "", "\t", "").Replace(email)
	return strings.ToLower(email)
}

// Capitalize upper-cases the first letter and lower-cases the rest.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
