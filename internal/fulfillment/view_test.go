package fulfillment

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/fulfillment-backend/pkg/db/dbtest"
	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
)

func courier(t *testing.T, f fixture, requestFor *models.Order) *models.DeliveryCompany {
	t.Helper()
	company := &models.DeliveryCompany{ID: uuid.New(), UserID: uuid.New(), Name: "Courier", Status: enums.DeliveryCompanyStatusApproved}
	dbtest.Create(t, f.db, company)
	if requestFor != nil {
		dbtest.Create(t, f.db, &models.DeliveryRequest{ID: uuid.New(), OrderID: requestFor.ID, CompanyID: company.ID, Status: enums.DeliveryRequestStatusPending})
	}
	return company
}

func TestGetOrderAsCustomer(t *testing.T) {
	f := seed(t)
	company := courier(t, f, f.order)
	_, err := f.decide(t, f.vendorA, f.itemA, enums.ItemActionAccept)
	require.NoError(t, err)

	view, err := f.svc.GetOrder(context.Background(), ViewInput{OrderID: f.order.ID, ActorUserID: f.customer, Role: enums.ActorRoleCustomer})
	require.NoError(t, err)
	assert.Equal(t, f.order.ID, view.Order.ID)
	assert.Equal(t, PhaseAwaitingVendors, view.Phase)
	require.Len(t, view.Items, 2)
	require.Len(t, view.DeliveryRequests, 1)
	assert.Equal(t, company.ID, view.DeliveryRequests[0].CompanyID)
}

func TestGetOrderAsVendorSeesOwnLines(t *testing.T) {
	f := seed(t)

	view, err := f.svc.GetOrder(context.Background(), ViewInput{OrderID: f.order.ID, ActorUserID: f.vendorB.UserID, Role: enums.ActorRoleVendor})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, f.itemB.ID, view.Items[0].ID)
	assert.Empty(t, view.DeliveryRequests)
}

func TestGetOrderAsDeliveryCompany(t *testing.T) {
	f := seed(t)
	offered := courier(t, f, f.order)
	courier(t, f, f.order)

	view, err := f.svc.GetOrder(context.Background(), ViewInput{OrderID: f.order.ID, ActorUserID: offered.UserID, Role: enums.ActorRoleDelivery})
	require.NoError(t, err)
	assert.Len(t, view.Items, 2)
	require.Len(t, view.DeliveryRequests, 1)
	assert.Equal(t, offered.ID, view.DeliveryRequests[0].CompanyID)
}

func TestGetOrderHidesFromOutsiders(t *testing.T) {
	f := seed(t)
	stranger := courier(t, f, nil)
	otherVendor := dbtest.Vendor("Other")
	dbtest.Create(t, f.db, otherVendor)
	ctx := context.Background()

	tests := []struct {
		name  string
		input ViewInput
	}{
		{name: "other customer", input: ViewInput{OrderID: f.order.ID, ActorUserID: uuid.New(), Role: enums.ActorRoleCustomer}},
		{name: "vendor without lines", input: ViewInput{OrderID: f.order.ID, ActorUserID: otherVendor.UserID, Role: enums.ActorRoleVendor}},
		{name: "user without vendor", input: ViewInput{OrderID: f.order.ID, ActorUserID: uuid.New(), Role: enums.ActorRoleVendor}},
		{name: "company without request", input: ViewInput{OrderID: f.order.ID, ActorUserID: stranger.UserID, Role: enums.ActorRoleDelivery}},
		{name: "unknown role", input: ViewInput{OrderID: f.order.ID, ActorUserID: f.customer, Role: enums.ActorRoleAdmin}},
		{name: "missing order", input: ViewInput{OrderID: uuid.New(), ActorUserID: f.customer, Role: enums.ActorRoleCustomer}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.GetOrder(ctx, tt.input)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), err.Error())
		})
	}
}
