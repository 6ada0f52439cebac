package dynamodb

import (
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dreschagin/session-monitor/internal/application/port"
)

func TestToItemAndBack(t *testing.T) {
	checkedAt := time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)
	record := port.DeployAuditRecord{
		ID:             "a1",
		Requester:      "ci",
		CanDeploy:      true,
		ActiveSessions: 0,
		Threshold:      2,
		CheckedAt:      checkedAt,
	}

	item, err := toItem(record, 24*time.Hour)
	if err != nil {
		t.Fatalf("toItem() error = %v", err)
	}

	pk := item[attrPK].(*types.AttributeValueMemberS).Value
	if pk != deployCheckPK {
		t.Errorf("unexpected PK %q", pk)
	}
	expires := item[attrExpiresAt].(*types.AttributeValueMemberN).Value
	if expires != strconv.FormatInt(checkedAt.Add(24*time.Hour).Unix(), 10) {
		t.Errorf("unexpected expires_at %s", expires)
	}

	got, err := fromItem(item)
	if err != nil {
		t.Fatalf("fromItem() error = %v", err)
	}
	if got != record {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, record)
	}
}

func TestToItemWithoutTTLOrRequester(t *testing.T) {
	item, err := toItem(port.DeployAuditRecord{ID: "b2", CheckedAt: time.Now()}, 0)
	if err != nil {
		t.Fatalf("toItem() error = %v", err)
	}
	if _, ok := item[attrExpiresAt]; ok {
		t.Error("expires_at must be omitted when TTL is disabled")
	}
	if _, ok := item[attrRequester]; ok {
		t.Error("requester must be omitted when empty")
	}
}

func TestToItemValidation(t *testing.T) {
	tests := []struct {
		name   string
		record port.DeployAuditRecord
	}{
		{name: "missing id", record: port.DeployAuditRecord{ID: "  "}},
		{name: "negative active sessions", record: port.DeployAuditRecord{ID: "x", ActiveSessions: -1}},
		{name: "negative threshold", record: port.DeployAuditRecord{ID: "x", Threshold: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := toItem(tt.record, 0); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestFromItemRejectsMalformed(t *testing.T) {
	item, err := toItem(port.DeployAuditRecord{ID: "c3", CheckedAt: time.Now()}, 0)
	if err != nil {
		t.Fatalf("toItem() error = %v", err)
	}
	item[attrCanDeploy] = &types.AttributeValueMemberS{Value: "yes"}

	if _, err := fromItem(item); err == nil {
		t.Fatal("expected error for non-boolean can_deploy")
	}
}

func TestSortKeyFollowsTime(t *testing.T) {
	earlier := buildSK(time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), "z")
	later := buildSK(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), "a")

	if !(earlier < later) {
		t.Fatalf("expected %q < %q", earlier, later)
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, defaultListLimit},
		{-5, defaultListLimit},
		{7, 7},
		{maxListLimit + 1, maxListLimit},
	}
	for _, tt := range tests {
		if got := clampLimit(tt.in); got != tt.want {
			t.Errorf("clampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
