package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	cases := []struct {
		in   string
		want PackageStatus
		ok   bool
	}{
		{"received_china", StatusReceivedChina, true},
		{"in_transit", StatusInTransit, true},
		{"arrived_africa", StatusArrivedAfrica, true},
		{"available_warehouse", StatusAvailableWarehouse, true},
		{"picked_up", StatusPickedUp, true},
		// blank means the initial stage
		{"", StatusReceivedChina, true},
		{"  IN_TRANSIT  ", StatusInTransit, true},
		{"teleported", StatusReceivedChina, false},
	}
	for _, c := range cases {
		got, ok := ParseStatus(c.in)
		require.Equal(t, c.ok, ok, "input %q", c.in)
		require.Equal(t, c.want, got, "input %q", c.in)
	}
}

func TestAllStatusesAreValid(t *testing.T) {
	for _, s := range AllStatuses() {
		require.True(t, s.Valid(), "status %q", s)
	}
	require.False(t, PackageStatus("teleported").Valid())
}

func TestParseNotificationTypeAndRoles(t *testing.T) {
	nt, ok := ParseNotificationType("package_arrived")
	require.True(t, ok)
	require.Equal(t, NotifPackageArrived, nt)

	_, ok = ParseNotificationType("smoke_signal")
	require.False(t, ok)

	role, ok := ParseSenderRole("admin")
	require.True(t, ok)
	require.Equal(t, SenderAdmin, role)
}
