package radiusacct

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"layeh.com/radius"
	"layeh.com/radius/rfc2865"
	"layeh.com/radius/rfc2866"

	"github.com/mohit83k/honeypot/internal/model"
)

func failedSession() model.SessionRecord {
	start := time.Date(2025, 6, 21, 10, 0, 0, 0, time.UTC)
	return model.SessionRecord{
		ID:                   "4f1c2d3e-0000-4000-8000-000000000001",
		SourceIP:             "172.20.0.1",
		SourcePort:           51234,
		LocalAddr:            "172.20.0.2:22",
		StartTime:            start,
		EndTime:              start.Add(30840 * time.Millisecond),
		Duration:             30840 * time.Millisecond,
		CredentialsAttempted: []model.Credential{{Username: "admin", Password: "password"}},
		BytesReceived:        15,
		Outcome:              model.OutcomeAuthFailed,
		CloseReason:          "disconnect_after_fail1",
	}
}

func TestPacket_Attributes(t *testing.T) {
	e := NewExporter("127.0.0.1:1813", "testing123")

	p, err := e.Packet(failedSession())
	require.NoError(t, err)

	assert.Equal(t, radius.CodeAccountingRequest, p.Code)
	assert.Equal(t, rfc2866.AcctStatusType_Value_Stop, rfc2866.AcctStatusType_Get(p))
	assert.Equal(t, "4f1c2d3e-0000-4000-8000-000000000001", rfc2866.AcctSessionID_GetString(p))
	assert.Equal(t, rfc2866.AcctSessionTime(30), rfc2866.AcctSessionTime_Get(p))
	assert.Equal(t, rfc2866.AcctInputOctets(15), rfc2866.AcctInputOctets_Get(p))
	assert.Equal(t, rfc2866.AcctTerminateCause_Value_LostCarrier, rfc2866.AcctTerminateCause_Get(p))
	assert.Equal(t, "admin", rfc2865.UserName_GetString(p))
	assert.Equal(t, "172.20.0.1:51234", rfc2865.CallingStationID_GetString(p))
	assert.Equal(t, rfc2865.NASPort(22), rfc2865.NASPort_Get(p))
	assert.Equal(t, "172.20.0.2", rfc2865.NASIPAddress_Get(p).String())
}

func TestPacket_NoCredentials(t *testing.T) {
	rec := failedSession()
	rec.CredentialsAttempted = nil
	rec.LocalAddr = "[::]:22"
	rec.CloseReason = model.ReasonLogout

	p, err := NewExporter("127.0.0.1:1813", "s").Packet(rec)
	require.NoError(t, err)

	assert.Empty(t, rfc2865.UserName_GetString(p))
	assert.Nil(t, rfc2865.NASIPAddress_Get(p))
	assert.Equal(t, rfc2866.AcctTerminateCause_Value_UserRequest, rfc2866.AcctTerminateCause_Get(p))
}

func TestTerminateCause(t *testing.T) {
	cases := map[string]rfc2866.AcctTerminateCause{
		model.ReasonAuthFailed:      rfc2866.AcctTerminateCause_Value_AdminReset,
		model.ReasonCommandLimit:    rfc2866.AcctTerminateCause_Value_AdminReset,
		model.ReasonLogout:          rfc2866.AcctTerminateCause_Value_UserRequest,
		model.ReasonShellDisconnect: rfc2866.AcctTerminateCause_Value_LostCarrier,
		model.ReasonNoUsername:      rfc2866.AcctTerminateCause_Value_LostCarrier,
		"disconnect_after_fail1":    rfc2866.AcctTerminateCause_Value_LostCarrier,
	}
	for reason, want := range cases {
		assert.Equal(t, want, terminateCause(reason), reason)
	}
}

func TestExporter_Save_RoundTrip(t *testing.T) {
	secret := []byte("testing123")
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	received := make(chan *radius.Packet, 1)
	srv := &radius.PacketServer{
		SecretSource: radius.StaticSecretSource(secret),
		Handler: radius.HandlerFunc(func(w radius.ResponseWriter, r *radius.Request) {
			received <- r.Packet
			_ = w.Write(r.Response(radius.CodeAccountingResponse))
		}),
	}
	go func() { _ = srv.Serve(conn) }()
	defer srv.Shutdown(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	e := NewExporter(conn.LocalAddr().String(), string(secret))
	require.NoError(t, e.Save(ctx, failedSession()))

	select {
	case pkt := <-received:
		assert.Equal(t, "admin", rfc2865.UserName_GetString(pkt))
		assert.Equal(t, rfc2866.AcctInputOctets(15), rfc2866.AcctInputOctets_Get(pkt))
	case <-time.After(2 * time.Second):
		t.Fatal("accounting server never received the request")
	}
}

func TestExporter_Save_Timeout(t *testing.T) {
	// bound but never answered
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err = NewExporter(conn.LocalAddr().String(), "testing123").Save(ctx, failedSession())
	assert.Error(t, err)
}
