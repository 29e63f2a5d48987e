package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/folio/internal/auth"
	"github.com/folio/internal/db"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 8

var usernamePattern = regexp.MustCompile(`^[a-z0-9_-]{3,32}$`)

// UserService 负责账号注册、登录校验与角色管理。
type UserService struct {
	db   *gorm.DB
	cost int
}

// RegisterInput 是读者注册时提交的字段。
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func NewUserService(gdb *gorm.DB) *UserService {
	return &UserService{db: gdb, cost: bcrypt.DefaultCost}
}

// WithPasswordCost 调整 bcrypt 成本，测试中使用最小值加速。
func (s *UserService) WithPasswordCost(cost int) *UserService {
	s.cost = cost
	return s
}

// Register creates a READER account.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*db.User, error) {
	return s.create(ctx, input, auth.RoleReader)
}

// Authenticate checks credentials by username or email. Any mismatch yields
// auth.ErrUnauthorized without revealing which part was wrong.
func (s *UserService) Authenticate(ctx context.Context, login, password string) (*db.User, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	if login == "" || password == "" {
		return nil, auth.ErrUnauthorized
	}

	var user db.User
	if err := s.db.WithContext(ctx).Where("username = ? OR email = ?", login, login).First(&user).Error; err != nil {
		if isNotFound(err) {
			return nil, auth.ErrUnauthorized
		}
		return nil, storageError(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, auth.ErrUnauthorized
	}
	return &user, nil
}

// Get returns the user with id.
func (s *UserService) Get(ctx context.Context, id uint) (*db.User, error) {
	var user db.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, storageError(err)
	}
	return &user, nil
}

// List returns all accounts for user management.
func (s *UserService) List(ctx context.Context, actor auth.Principal) ([]db.User, error) {
	if !actor.Can(auth.CapManageUsers) {
		return nil, ErrForbidden
	}
	users := []db.User{}
	if err := s.db.WithContext(ctx).Order("id asc").Find(&users).Error; err != nil {
		return nil, storageError(err)
	}
	return users, nil
}

// SetRole changes another user's role. Admins cannot change their own role.
func (s *UserService) SetRole(ctx context.Context, actor auth.Principal, id uint, rawRole string) (*db.User, error) {
	if !actor.Can(auth.CapManageUsers) {
		return nil, ErrForbidden
	}
	role, ok := auth.ParseRole(rawRole)
	if !ok {
		return nil, validationError("unknown role %q", rawRole)
	}
	if id == actor.UserID {
		return nil, validationError("cannot change your own role")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("role", string(role)).Error; err != nil {
		return nil, storageError(err)
	}
	user.Role = string(role)
	return user, nil
}

// EnsureAdmin creates the bootstrap admin when no ADMIN exists yet. created
// is false when an admin was already present.
func (s *UserService) EnsureAdmin(ctx context.Context, input RegisterInput) (user *db.User, created bool, err error) {
	existing, err := s.FirstAdmin(ctx)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, err
	}

	user, err = s.create(ctx, input, auth.RoleAdmin)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// FirstAdmin returns the earliest ADMIN account. Automation-created posts are
// attributed to it.
func (s *UserService) FirstAdmin(ctx context.Context) (*db.User, error) {
	var user db.User
	if err := s.db.WithContext(ctx).Where("role = ?", string(auth.RoleAdmin)).Order("id asc").First(&user).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, storageError(err)
	}
	return &user, nil
}

func (s *UserService) create(ctx context.Context, input RegisterInput, role auth.Role) (*db.User, error) {
	username := strings.ToLower(strings.TrimSpace(input.Username))
	if !usernamePattern.MatchString(username) {
		return nil, validationError("username must be 3-32 characters of a-z, 0-9, '_' or '-'")
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(input.Password) < minPasswordLength {
		return nil, validationError("password must be at least %d characters", minPasswordLength)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&db.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error; err != nil {
		return nil, storageError(err)
	}
	if count > 0 {
		return nil, ErrUserExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return nil, validationError("password cannot be hashed: %v", err)
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = username
	}
	user := db.User{
		Username: username,
		Email:    email,
		Password: string(hashed),
		Name:     name,
		Role:     string(role),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, storageError(err)
	}
	return &user, nil
}
