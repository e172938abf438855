package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestTransitions_FromDraft(t *testing.T) {
	next, ok := NextStatus(StatusDraft, EventLinkRetailer)
	require.True(t, ok)
	require.Equal(t, StatusAwaitingRetailerConfirm, next)

	// only link / decline / expire are legal from draft
	require.False(t, CanTransition(StatusDraft, EventMarkDelivered))
	require.False(t, CanTransition(StatusDraft, EventRedeemCode))
	require.False(t, CanTransition(StatusDraft, EventRetailerConfirm))
	require.False(t, CanTransition(StatusDraft, EventAdminApprove))
	require.False(t, CanTransition(StatusDraft, EventFinalize))
	require.True(t, CanTransition(StatusDraft, EventDecline))
	require.True(t, CanTransition(StatusDraft, EventExpire))
}

func TestTransitions_HappyPath(t *testing.T) {
	path := []struct {
		from Status
		ev   Event
		to   Status
	}{
		{StatusDraft, EventLinkRetailer, StatusAwaitingRetailerConfirm},
		{StatusAwaitingRetailerConfirm, EventRetailerConfirm, StatusPendingAdminApproval},
		{StatusPendingAdminApproval, EventAdminApprove, StatusFundDisbursed},
		{StatusFundDisbursed, EventMarkDelivered, StatusDelivered},
		{StatusDelivered, EventRedeemCode, StatusReceived},
		{StatusReceived, EventFinalize, StatusCompleted},
	}

	for _, step := range path {
		next, ok := NextStatus(step.from, step.ev)
		require.True(t, ok, "%s + %s should be legal", step.from, step.ev)
		require.Equal(t, step.to, next)
	}
}

func TestTransitions_DeclineExpireBeforeHandoff(t *testing.T) {
	for _, s := range []Status{
		StatusDraft,
		StatusAwaitingRetailerConfirm,
		StatusPendingAdminApproval,
		StatusFundDisbursed,
		StatusDelivered,
	} {
		require.True(t, CanTransition(s, EventDecline), "decline from %s", s)
		require.True(t, CanTransition(s, EventExpire), "expire from %s", s)
	}

	// custody has passed: no decline/expire after received
	require.False(t, CanTransition(StatusReceived, EventDecline))
	require.False(t, CanTransition(StatusReceived, EventExpire))
}

func TestTransitions_TerminalStatuses(t *testing.T) {
	allEvents := []Event{
		EventLinkRetailer, EventRetailerConfirm, EventAdminApprove,
		EventMarkDelivered, EventRedeemCode, EventFinalize,
		EventDecline, EventExpire,
	}

	for _, s := range []Status{StatusCompleted, StatusDeclined, StatusExpired} {
		require.True(t, s.IsTerminal())
		for _, ev := range allEvents {
			require.False(t, CanTransition(s, ev), "%s must accept no events", s)
		}
	}

	require.False(t, StatusReceived.IsTerminal()) // settlement still pending
	require.False(t, StatusDraft.IsTerminal())
}

func TestValidTerm(t *testing.T) {
	require.True(t, ValidTerm(3))
	require.True(t, ValidTerm(7))
	require.True(t, ValidTerm(14))
	require.False(t, ValidTerm(0))
	require.False(t, ValidTerm(5))
	require.False(t, ValidTerm(30))
}

func TestReadyForLink(t *testing.T) {
	aap := AAP{
		ProductName:    "50kg rice bags",
		Quantity:       10,
		PurchasePrice:  decimal.NewFromInt(25000),
		ProductPhotos:  []string{"https://cdn.example.com/p/1.jpg"},
		SellerName:     "Mama Nkechi Stores",
		SellerLocation: "Mile 12 Market, Lagos",
	}
	require.True(t, aap.ReadyForLink())

	noPhotos := aap
	noPhotos.ProductPhotos = nil
	require.False(t, noPhotos.ReadyForLink())

	freePrice := aap
	freePrice.PurchasePrice = decimal.Zero
	require.False(t, freePrice.ReadyForLink())

	noSeller := aap
	noSeller.SellerName = ""
	require.False(t, noSeller.ReadyForLink())
}
