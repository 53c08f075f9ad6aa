package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/clms-app/clms/core"
)

// bcrypt cost used for all account passwords.
const passwordCost = 10

type Teacher struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
}

func (t *Teacher) SetPassword(pwd string) (err error) {
	t.PasswordHash, err = hashPassword(pwd)
	return err
}

func (t Teacher) CheckPassword(pwd string) error {
	return checkPassword(t.PasswordHash, pwd)
}

func (t Teacher) Identity() core.Identity {
	return core.Identity{ID: t.ID, Role: core.RoleTeacher}
}

type Student struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	LRN          string    `json:"lrn"`
	XP           int       `json:"xp"`
	Level        int       `json:"level"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
}

func (s *Student) SetPassword(pwd string) (err error) {
	s.PasswordHash, err = hashPassword(pwd)
	return err
}

func (s Student) CheckPassword(pwd string) error {
	return checkPassword(s.PasswordHash, pwd)
}

func (s Student) Identity() core.Identity {
	return core.Identity{ID: s.ID, Role: core.RoleStudent}
}

func hashPassword(pwd string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(pwd), passwordCost)
}

func checkPassword(hash []byte, pwd string) error {
	if err := bcrypt.CompareHashAndPassword(hash, []byte(pwd)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// NewTeacher contains information needed to register a new Teacher.
type NewTeacher struct {
	Name     string `json:"name" validate:"required,max=150"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
}

func (nt *NewTeacher) Clean() {
	nt.Name = core.CleanString(nt.Name)
	nt.Email = core.CleanString(nt.Email, true /* lower */)
}

// NewStudent contains information needed to register a new Student.
type NewStudent struct {
	Name     string `json:"name" validate:"required,max=150"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
	LRN      string `json:"lrn" validate:"required,lrn"`
}

func (ns *NewStudent) Clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.LRN = core.CleanString(ns.LRN)
}

// SetPassword is used to replace an account's password (admin CLI).
type SetPassword struct {
	Role     string `json:"role" validate:"required,oneof=teacher student"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (c *Credentials) Clean() {
	c.Email = core.CleanString(c.Email, true /* lower */)
}
