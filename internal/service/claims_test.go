package service

import (
	"testing"
	"time"

	"github.com/bookingapp/auth-service/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestBuildClaims_DeterministicForSameSnapshot(t *testing.T) {
	t.Parallel()

	user := &models.User{
		ID:        uuid.New(),
		Email:     "user@example.com",
		Roles:     []string{"manager", models.RoleUser},
		CreatedAt: time.Now().UTC(),
	}

	first := buildClaims(user)
	second := buildClaims(user)
	require.Equal(t, first, second)

	require.Equal(t, user.ID, first.UserID)
	require.Equal(t, user.Email, first.Email)
}

func TestBuildClaims_NormalizesRoleOrder(t *testing.T) {
	t.Parallel()

	a := &models.User{ID: uuid.New(), Email: "u@e.com", Roles: []string{"user", "admin"}}
	b := &models.User{ID: a.ID, Email: "u@e.com", Roles: []string{"admin", "user"}}

	require.Equal(t, buildClaims(a).Roles, buildClaims(b).Roles)
	require.Equal(t, []string{"admin", "user"}, buildClaims(a).Roles)
}

func TestBuildClaims_DoesNotMutateUser(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New(), Email: "u@e.com", Roles: []string{"user", "admin"}}

	_ = buildClaims(user)
	require.Equal(t, []string{"user", "admin"}, user.Roles)
}
