package mockapi

import (
	"errors"
	"strings"
	"sync"

	"sociomile-gateway/internal/identity"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// SeedPassword is shared by every seeded account.
const SeedPassword = "password123"

type User struct {
	ID             uint
	Email          string
	Name           string
	Role           identity.Role
	OrganizationID *uint
	passwordHash   []byte
}

// Identity renders u the way the profile endpoint returns it.
func (u User) Identity(orgs map[uint]string) identity.Identity {
	id := identity.Identity{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
	if u.OrganizationID != nil {
		id.Organization = &identity.Organization{ID: *u.OrganizationID, Name: orgs[*u.OrganizationID]}
	}
	return id
}

// Directory is an in-memory user table keyed by id and lower-cased email.
type Directory struct {
	mu      sync.RWMutex
	cost    int
	nextID  uint
	byID    map[uint]User
	byEmail map[string]uint
	orgs    map[uint]string
}

// NewDirectory returns an empty directory. cost <= 0 selects bcrypt.DefaultCost.
func NewDirectory(cost int) *Directory {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &Directory{
		cost:    cost,
		nextID:  1,
		byID:    make(map[uint]User),
		byEmail: make(map[string]uint),
		orgs:    make(map[uint]string),
	}
}

// Seed installs one organization and an account for every role.
func (d *Directory) Seed() error {
	const orgID uint = 1
	d.mu.Lock()
	d.orgs[orgID] = "TechCorp Solutions"
	d.mu.Unlock()

	org := orgID
	seeds := []struct {
		name, email string
		role        identity.Role
		org         *uint
	}{
		{"Super Admin", "admin@sociomile.com", identity.RoleSuperAdmin, nil},
		{"John Doe", "owner@techcorp.com", identity.RoleOrganizationOwner, &org},
		{"Alice Johnson", "alice@techcorp.com", identity.RoleOrganizationSales, &org},
		{"Bob Smith", "bob@techcorp.com", identity.RoleOrganizationSales, &org},
		{"Customer One", "customer1@example.com", identity.RoleGuest, nil},
		{"Customer Two", "customer2@example.com", identity.RoleGuest, nil},
		{"Customer Three", "customer3@example.com", identity.RoleGuest, nil},
	}
	for _, s := range seeds {
		if _, err := d.Create(s.email, SeedPassword, s.name, s.role, s.org); err != nil {
			return err
		}
	}
	return nil
}

func (d *Directory) Create(email, password, name string, role identity.Role, orgID *uint) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cost)
	if err != nil {
		return User{}, err
	}
	key := strings.ToLower(strings.TrimSpace(email))

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.byEmail[key]; ok {
		return User{}, ErrEmailTaken
	}
	u := User{
		ID:             d.nextID,
		Email:          strings.TrimSpace(email),
		Name:           name,
		Role:           role,
		OrganizationID: orgID,
		passwordHash:   hash,
	}
	d.nextID++
	d.byID[u.ID] = u
	d.byEmail[key] = u.ID
	return u, nil
}

// Authenticate returns the user when password matches. Unknown emails and wrong
// passwords are indistinguishable.
func (d *Directory) Authenticate(email, password string) (User, error) {
	d.mu.RLock()
	id, ok := d.byEmail[strings.ToLower(strings.TrimSpace(email))]
	u := d.byID[id]
	d.mu.RUnlock()
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (d *Directory) ByID(id uint) (User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.byID[id]
	return u, ok
}

func (d *Directory) Identity(u User) identity.Identity {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return u.Identity(d.orgs)
}
