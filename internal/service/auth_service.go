package service

import (
	"context"
	"crypto/rand"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/citesignal-backend/internal/domain/entity"
	"github.com/ignatzorin/citesignal-backend/internal/domain/repository"
	"github.com/ignatzorin/citesignal-backend/internal/domain/valueobject"
	"github.com/ignatzorin/citesignal-backend/internal/logger"
	"github.com/ignatzorin/citesignal-backend/internal/pkg/apperror"
	"github.com/ignatzorin/citesignal-backend/internal/validation"
)

const generatedPasswordLength = 12

// AuthService регистрация, вход и управление учётными записями агентов.
type AuthService struct {
	users        repository.UserRepository
	references   repository.ReferenceRepository
	tokenManager *TokenManager
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(users repository.UserRepository, references repository.ReferenceRepository, tokenManager *TokenManager) *AuthService {
	return &AuthService{users: users, references: references, tokenManager: tokenManager}
}

// RegisterInput данные гражданина при регистрации.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     *string
	Address   *string
	Password  string
}

// AuthResult пользователь и выданный токен.
type AuthResult struct {
	User  *entity.User
	Token *AccessToken
}

// Register создаёт учётную запись гражданина и сразу выдаёт токен.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if err := validateProfile(in.FirstName, in.LastName, in.Email, in.Phone, in.Address); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, apperror.Validation(err.Error())
	}

	user := &entity.User{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     validation.NormalizeEmail(in.Email),
		Phone:     trimmedOrNil(in.Phone),
		Address:   trimmedOrNil(in.Address),
		Role:      valueobject.RoleCitizen,
		Active:    true,
	}
	if err := s.create(ctx, user, in.Password); err != nil {
		return nil, err
	}

	token, err := s.tokenManager.Issue(user)
	if err != nil {
		return nil, err
	}
	logger.L().WithField("user_id", user.ID).Info("auth: зарегистрирован гражданин")
	return &AuthResult{User: user, Token: token}, nil
}

// Login проверяет учётные данные и возвращает токен.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if validation.ValidateEmail(email) != nil || password == "" {
		return nil, apperror.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperror.ErrInvalidCredentials
	}
	if !user.Active {
		return nil, apperror.New(apperror.ErrCodeForbidden, "account is disabled")
	}

	token, err := s.tokenManager.Issue(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}

// CurrentUser профиль по идентификатору из токена.
func (s *AuthService) CurrentUser(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NotFound("user", id)
	}
	return user, nil
}

// CreateAgentInput данные нового муниципального агента.
type CreateAgentInput struct {
	FirstName    string
	LastName     string
	Email        string
	Phone        *string
	Address      *string
	DepartmentID *uuid.UUID
}

// CreatedAgent агент и его сгенерированный пароль, который показывается один раз.
type CreatedAgent struct {
	User     *entity.User `json:"user"`
	Password string       `json:"generated_password"`
}

// CreateAgent создаёт учётную запись агента со случайным паролем.
func (s *AuthService) CreateAgent(ctx context.Context, in CreateAgentInput) (*CreatedAgent, error) {
	if err := validateProfile(in.FirstName, in.LastName, in.Email, in.Phone, in.Address); err != nil {
		return nil, err
	}
	if in.DepartmentID != nil {
		dept, err := s.references.FindDepartmentByID(ctx, *in.DepartmentID)
		if err != nil {
			return nil, err
		}
		if dept == nil {
			return nil, apperror.NotFound("department", *in.DepartmentID)
		}
	}

	password, err := generatePassword(generatedPasswordLength)
	if err != nil {
		return nil, fmt.Errorf("auth service: не удалось сгенерировать пароль: %w", err)
	}

	user := &entity.User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        validation.NormalizeEmail(in.Email),
		Phone:        trimmedOrNil(in.Phone),
		Address:      trimmedOrNil(in.Address),
		Role:         valueobject.RoleMunicipalAgent,
		DepartmentID: in.DepartmentID,
		Active:       true,
	}
	if err := s.create(ctx, user, password); err != nil {
		return nil, err
	}

	logger.L().WithField("user_id", user.ID).Info("auth: создан муниципальный агент")
	return &CreatedAgent{User: user, Password: password}, nil
}

// ListAgents агенты постранично.
func (s *AuthService) ListAgents(ctx context.Context, page repository.Page) ([]*entity.User, int, error) {
	if page.Limit <= 0 || page.Limit > 100 {
		page.Limit = 20
	}
	return s.users.ListByRole(ctx, valueobject.RoleMunicipalAgent, page)
}

// ImportResult итог импорта агентов из CSV.
type ImportResult struct {
	Total   int            `json:"total"`
	Success int            `json:"success"`
	Errors  []string       `json:"errors"`
	Created []CreatedAgent `json:"created"`
}

var importHeader = []string{"first_name", "last_name", "email", "phone", "address"}

// ImportAgentsCSV создаёт агентов построчно; ошибочные строки пропускаются и попадают в Errors.
// Обязательны первые три колонки, phone и address необязательны.
func (s *AuthService) ImportAgentsCSV(ctx context.Context, r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperror.Validation("csv file is empty")
	}
	if err != nil {
		return nil, apperror.Validation(fmt.Sprintf("csv header is unreadable: %v", err))
	}
	if !validImportHeader(header) {
		return nil, apperror.Validation("invalid csv header, expected: " + strings.Join(importHeader, ","))
	}

	result := &ImportResult{Errors: []string{}, Created: []CreatedAgent{}}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.Total++
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		line, _ := reader.FieldPos(0)
		if isBlankRecord(record) {
			continue
		}
		result.Total++

		if len(record) < 3 {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: not enough columns", line))
			continue
		}
		in := CreateAgentInput{
			FirstName: record[0],
			LastName:  record[1],
			Email:     record[2],
			Phone:     column(record, 3),
			Address:   column(record, 4),
		}
		created, err := s.CreateAgent(ctx, in)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %s", line, errorMessage(err)))
			continue
		}
		result.Success++
		result.Created = append(result.Created, *created)
	}

	logger.L().WithField("total", result.Total).WithField("success", result.Success).Info("auth: импорт агентов завершён")
	return result, nil
}

// EnsureSuperAdmin создаёт суперадминистратора при первом запуске.
func (s *AuthService) EnsureSuperAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	existing, err := s.users.FindByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	if err := validation.ValidatePassword(password); err != nil {
		return fmt.Errorf("auth service: SUPERADMIN_PASSWORD: %w", err)
	}

	user := &entity.User{
		FirstName: "Super",
		LastName:  "Admin",
		Email:     validation.NormalizeEmail(email),
		Role:      valueobject.RoleSuperAdmin,
		Active:    true,
	}
	if err := s.create(ctx, user, password); err != nil {
		return err
	}
	logger.L().WithField("user_id", user.ID).Info("auth: создан суперадминистратор")
	return nil
}

func (s *AuthService) create(ctx context.Context, user *entity.User, password string) error {
	existing, err := s.users.FindByEmail(ctx, user.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return apperror.New(apperror.ErrCodeConflict, "email is already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("auth service: не удалось захешировать пароль: %w", err)
	}
	user.PasswordHash = string(hash)
	return s.users.Create(ctx, user)
}

func validateProfile(firstName, lastName, email string, phone, address *string) error {
	checks := []error{
		validation.ValidatePersonName("first_name", firstName),
		validation.ValidatePersonName("last_name", lastName),
		validation.ValidateEmail(email),
		validation.ValidatePhone(phone),
		validation.ValidateOptional("address", address, validation.MaxUserAddressLength),
	}
	for _, err := range checks {
		if err != nil {
			return apperror.Validation(err.Error())
		}
	}
	return nil
}

func validImportHeader(header []string) bool {
	if len(header) < 3 {
		return false
	}
	for i, name := range header {
		if i >= len(importHeader) {
			break
		}
		name = strings.TrimPrefix(name, "\ufeff")
		if strings.ToLower(strings.TrimSpace(name)) != importHeader[i] {
			return false
		}
	}
	return true
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func column(record []string, i int) *string {
	if i >= len(record) {
		return nil
	}
	return trimmedOrNil(&record[i])
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func errorMessage(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

const passwordAlphabet = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// generatePassword случайный пароль без похожих символов (l, 1, O, 0).
func generatePassword(n int) (string, error) {
	max := big.NewInt(int64(len(passwordAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = passwordAlphabet[idx.Int64()]
	}
	return string(b), nil
}
