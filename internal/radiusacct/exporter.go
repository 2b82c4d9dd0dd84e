package radiusacct

import (
	"context"
	"fmt"
	"math"
	"net"
	"strconv"

	"layeh.com/radius"
	"layeh.com/radius/rfc2865"
	"layeh.com/radius/rfc2866"

	"github.com/mohit83k/honeypot/internal/model"
)

const nasIdentifier = "ssh-honeypot"

// Exporter reports each finished session to a RADIUS accounting server as an
// Accounting-Request with Acct-Status-Type Stop.
type Exporter struct {
	Addr   string
	Secret []byte
}

// NewExporter returns an exporter sending to addr (host:port).
func NewExporter(addr, secret string) *Exporter {
	return &Exporter{
		Addr:   addr,
		Secret: []byte(secret),
	}
}

// Save sends the record and waits for the Accounting-Response.
func (e *Exporter) Save(ctx context.Context, record model.SessionRecord) error {
	packet, err := e.Packet(record)
	if err != nil {
		return err
	}

	resp, err := radius.Exchange(ctx, packet, e.Addr)
	if err != nil {
		return fmt.Errorf("failed to send accounting request: %w", err)
	}
	if resp.Code != radius.CodeAccountingResponse {
		return fmt.Errorf("unexpected accounting reply %v", resp.Code)
	}
	return nil
}

// Packet encodes a session record as an Accounting-Request.
func (e *Exporter) Packet(record model.SessionRecord) (*radius.Packet, error) {
	p := radius.New(radius.CodeAccountingRequest, e.Secret)

	set := []error{
		rfc2866.AcctStatusType_Set(p, rfc2866.AcctStatusType_Value_Stop),
		rfc2866.AcctSessionID_SetString(p, record.ID),
		rfc2866.AcctSessionTime_Set(p, rfc2866.AcctSessionTime(clampUint32(int64(record.Duration.Seconds())))),
		rfc2866.AcctInputOctets_Set(p, rfc2866.AcctInputOctets(clampUint32(record.BytesReceived))),
		rfc2866.AcctTerminateCause_Set(p, terminateCause(record.CloseReason)),
		rfc2865.CallingStationID_SetString(p, net.JoinHostPort(record.SourceIP, strconv.Itoa(record.SourcePort))),
		rfc2865.NASIdentifier_SetString(p, nasIdentifier),
	}
	if user := record.LastUsername(); user != "" {
		set = append(set, rfc2865.UserName_SetString(p, user))
	}
	if host, port, err := net.SplitHostPort(record.LocalAddr); err == nil {
		if ip := net.ParseIP(host); ip != nil && ip.To4() != nil && !ip.IsUnspecified() {
			set = append(set, rfc2865.NASIPAddress_Set(p, ip))
		}
		if n, err := strconv.Atoi(port); err == nil {
			set = append(set, rfc2865.NASPort_Set(p, rfc2865.NASPort(n)))
		}
	}

	for _, err := range set {
		if err != nil {
			return nil, fmt.Errorf("failed to encode accounting attribute: %w", err)
		}
	}
	return p, nil
}

// terminateCause maps a close reason onto RFC 2866 Acct-Terminate-Cause.
func terminateCause(reason string) rfc2866.AcctTerminateCause {
	switch reason {
	case model.ReasonAuthFailed, model.ReasonCommandLimit:
		return rfc2866.AcctTerminateCause_Value_AdminReset
	case model.ReasonLogout:
		return rfc2866.AcctTerminateCause_Value_UserRequest
	default:
		return rfc2866.AcctTerminateCause_Value_LostCarrier
	}
}

func clampUint32(n int64) uint32 {
	switch {
	case n < 0:
		return 0
	case n > math.MaxUint32:
		return math.MaxUint32
	}
	return uint32(n)
}
