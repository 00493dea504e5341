package repositories

import (
	"context"
	"testing"
	"time"

	"invoiceflow/internal/common"
	"invoiceflow/internal/models"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type UserRepoTestSuite struct {
	suite.Suite
	mock     pgxmock.PgxPoolIface
	users    UserRepository
	tenants  TenantRepository
	tenantID uuid.UUID
	context  context.Context
}

func (suite *UserRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	require.NoError(suite.T(), err)
	suite.mock = mock

	suite.users = NewUserRepo(mock)
	suite.tenants = NewTenantRepo(mock)
	suite.tenantID = uuid.New()
	suite.context = context.Background()
}

func (suite *UserRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestUserRepoTestSuite(t *testing.T) {
	suite.Run(t, new(UserRepoTestSuite))
}

func (suite *UserRepoTestSuite) TestCreate_Success() {
	user := &models.User{ID: uuid.New(), TenantID: suite.tenantID, Email: "a@b.test", PasswordHash: "hash", FirstName: "A", LastName: "B"}

	suite.mock.ExpectExec(`INSERT INTO users`).
		WithArgs(user.ID, user.TenantID, user.Email, user.PasswordHash, user.FirstName, user.LastName).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(suite.T(), suite.users.Create(suite.context, user))
}

func (suite *UserRepoTestSuite) TestCreate_EmailTaken() {
	user := &models.User{ID: uuid.New(), TenantID: suite.tenantID, Email: "a@b.test"}

	suite.mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	err := suite.users.Create(suite.context, user)

	assert.ErrorIs(suite.T(), err, common.ErrEmailTaken)
}

func (suite *UserRepoTestSuite) TestGetByEmail_NotFound() {
	suite.mock.ExpectQuery(`FROM users\s+WHERE email = \$1`).
		WithArgs("missing@b.test").
		WillReturnError(pgx.ErrNoRows)

	user, err := suite.users.GetByEmail(suite.context, "missing@b.test")

	assert.Nil(suite.T(), user)
	assert.ErrorIs(suite.T(), err, common.ErrNotFound)
}

func (suite *UserRepoTestSuite) TestGetByEmail_ReturnsHash() {
	id := uuid.New()
	now := time.Now()
	suite.mock.ExpectQuery(`SELECT id, tenant_id, email, password_hash`).
		WithArgs("a@b.test").
		WillReturnRows(pgxmock.NewRows([]string{"id", "tenant_id", "email", "password_hash", "first_name", "last_name", "created_at", "updated_at"}).
			AddRow(id, suite.tenantID, "a@b.test", "hash", "A", "B", now, now))

	user, err := suite.users.GetByEmail(suite.context, "a@b.test")

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), id, user.ID)
	assert.Equal(suite.T(), suite.tenantID, user.TenantID)
	assert.Equal(suite.T(), "hash", user.PasswordHash)
}

func (suite *UserRepoTestSuite) TestEmailExists() {
	suite.mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM users`).
		WithArgs("a@b.test").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := suite.users.EmailExists(suite.context, "a@b.test")

	require.NoError(suite.T(), err)
	assert.False(suite.T(), exists)
}

func (suite *UserRepoTestSuite) TestTenantFindOrCreate() {
	now := time.Now()
	suite.mock.ExpectQuery(`ON CONFLICT \(name\) DO UPDATE`).
		WithArgs(pgxmock.AnyArg(), "Oryxa").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "created_at", "updated_at"}).
			AddRow(suite.tenantID, "Oryxa", now, now))

	tenant, err := suite.tenants.FindOrCreate(suite.context, "Oryxa")

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.tenantID, tenant.ID)
}

func (suite *UserRepoTestSuite) TestTenantListIDs() {
	a, b := uuid.New(), uuid.New()
	suite.mock.ExpectQuery(`SELECT id FROM tenants`).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(a).AddRow(b))

	ids, err := suite.tenants.ListIDs(suite.context)

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []uuid.UUID{a, b}, ids)
}
