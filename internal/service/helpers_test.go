package service

import (
	"context"
	"testing"

	"eventory-payments/internal/apperr"
	"eventory-payments/internal/client"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testUserID  = "0b1c2d3e-4f50-4a6b-8c7d-9e0f1a2b3c4d"
	otherUserID = "9f8e7d6c-5b4a-4392-8170-6f5e4d3c2b1a"
)

type mockPaymentClient struct {
	mock.Mock
}

func (m *mockPaymentClient) Charge(ctx context.Context, req client.ChargeRequest) (*client.ChargeResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*client.ChargeResult)
	return res, args.Error(1)
}

func (m *mockPaymentClient) Refund(ctx context.Context, chargeID string) error {
	return m.Called(ctx, chargeID).Error(0)
}

func requireAppErr(t *testing.T, err error, status int) *apperr.Error {
	t.Helper()
	appErr, ok := apperr.As(err)
	require.True(t, ok, "expected *apperr.Error, got %v", err)
	require.Equal(t, status, appErr.Status, appErr.Error())
	return appErr
}
