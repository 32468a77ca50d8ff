package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/clearborder/duty_engine/internal/apperrors"
	"github.com/clearborder/duty_engine/internal/core/domain"
	"github.com/clearborder/duty_engine/internal/core/services"
	"github.com/clearborder/duty_engine/internal/dto"
	"github.com/clearborder/duty_engine/internal/utils"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock UserRepository ---
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) SaveUser(ctx context.Context, user domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// --- User Suite ---
type UserServiceTestSuite struct {
	suite.Suite
	mockRepo *MockUserRepository
	service  *services.UserService
}

func (suite *UserServiceTestSuite) SetupTest() {
	suite.mockRepo = new(MockUserRepository)
	suite.service = services.NewUserService(suite.mockRepo)
}

func (suite *UserServiceTestSuite) TestCreateUser_Success() {
	ctx := context.Background()
	req := dto.CreateUserRequest{Username: "broker1", Name: "Broker One", Password: "s3cret-pass"}

	suite.mockRepo.On("FindUserByUsername", ctx, "broker1").
		Return(nil, apperrors.NewNotFoundError("no user")).Once()
	suite.mockRepo.On("SaveUser", ctx, mock.MatchedBy(func(u domain.User) bool {
		return u.Username == "broker1" && u.PasswordHash != "" && u.PasswordHash != "s3cret-pass"
	})).Return(nil).Once()

	user, err := suite.service.CreateUser(ctx, req, "admin")

	suite.Require().NoError(err)
	suite.NotEmpty(user.UserID)
	suite.True(utils.CheckPasswordHash("s3cret-pass", user.PasswordHash))
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *UserServiceTestSuite) TestCreateUser_DuplicateUsername() {
	ctx := context.Background()
	req := dto.CreateUserRequest{Username: "broker1", Name: "Broker One", Password: "s3cret-pass"}

	suite.mockRepo.On("FindUserByUsername", ctx, "broker1").
		Return(&domain.User{Username: "broker1"}, nil).Once()

	user, err := suite.service.CreateUser(ctx, req, "admin")

	suite.Require().Error(err)
	suite.Nil(user)
	suite.ErrorIs(err, apperrors.ErrDuplicate)
}

// --- Auth Suite ---
type AuthServiceTestSuite struct {
	suite.Suite
	mockRepo *MockUserRepository
	service  *services.AuthService
}

func (suite *AuthServiceTestSuite) SetupTest() {
	suite.mockRepo = new(MockUserRepository)
	suite.service = services.NewAuthService(suite.mockRepo, services.AuthConfig{
		JWTSecret:   "test-secret",
		TokenExpiry: time.Hour,
		Issuer:      "duty-engine-test",
	})
}

func (suite *AuthServiceTestSuite) TestLogin_Success() {
	ctx := context.Background()
	hash, err := utils.HashPassword("s3cret-pass")
	suite.Require().NoError(err)
	user := &domain.User{UserID: "u-1", Username: "broker1", PasswordHash: hash}

	suite.mockRepo.On("FindUserByUsername", ctx, "broker1").Return(user, nil).Once()

	token, got, err := suite.service.Login(ctx, "broker1", "s3cret-pass")

	suite.Require().NoError(err)
	suite.NotEmpty(token)
	suite.Equal(user, got)

	claims, err := utils.ParseAndValidateJWT(token, "test-secret")
	suite.Require().NoError(err)
	suite.Equal("u-1", claims.Subject)
}

func (suite *AuthServiceTestSuite) TestLogin_WrongPassword() {
	ctx := context.Background()
	hash, err := utils.HashPassword("s3cret-pass")
	suite.Require().NoError(err)
	user := &domain.User{UserID: "u-1", Username: "broker1", PasswordHash: hash}

	suite.mockRepo.On("FindUserByUsername", ctx, "broker1").Return(user, nil).Once()

	token, got, err := suite.service.Login(ctx, "broker1", "wrong")

	suite.Require().Error(err)
	suite.Empty(token)
	suite.Nil(got)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *AuthServiceTestSuite) TestLogin_UnknownUserSameError() {
	ctx := context.Background()
	suite.mockRepo.On("FindUserByUsername", ctx, "ghost").
		Return(nil, apperrors.NewNotFoundError("no user")).Once()

	_, _, err := suite.service.Login(ctx, "ghost", "whatever")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func TestUserServiceTestSuite(t *testing.T) {
	suite.Run(t, new(UserServiceTestSuite))
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}
