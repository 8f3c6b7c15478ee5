package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleAuthorizer(t *testing.T) {
	a := NewDefaultAuthorizer()

	assert.NoError(t, a.Authorize(context.Background(), Principal{Role: "admin"}, ActionUnsync))
	assert.NoError(t, a.Authorize(context.Background(), Principal{Role: "device-operator"}, ActionUnsync))

	err := a.Authorize(context.Background(), Principal{Role: "viewer"}, ActionUnsync)
	assert.ErrorIs(t, err, ErrForbidden)

	err = a.Authorize(context.Background(), Principal{}, ActionUnsync)
	assert.ErrorIs(t, err, ErrForbidden, "missing role is denied")
}

func TestRoleAuthorizer_UnknownAction(t *testing.T) {
	a := NewRoleAuthorizer(map[Action][]string{ActionUnsync: {"admin"}})

	err := a.Authorize(context.Background(), Principal{Role: "admin"}, Action("device_sync:wipe"))
	assert.ErrorIs(t, err, ErrForbidden, "actions with no rule are denied by default")
}
