package event

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopPublisherSwallowsEverything(t *testing.T) {
	var pub Publisher = NoopPublisher{}
	ctx := context.Background()

	assert.NoError(t, pub.PublishLoanOpened(ctx, LoanOpenedEvent{}))
	assert.NoError(t, pub.PublishLoanClosed(ctx, LoanClosedEvent{}))
	assert.NoError(t, pub.PublishLoansReassigned(ctx, LoansReassignedEvent{}))
	assert.NoError(t, pub.PublishMemberRegistered(ctx, MemberRegisteredEvent{}))
	assert.NoError(t, pub.PublishBookAdded(ctx, BookAddedEvent{}))
}

func TestLoanOpenedEventOmitsNilEndDate(t *testing.T) {
	ev := LoanOpenedEvent{
		EventID:   "evt-1",
		Timestamp: time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC),
		Payload: LoanEventPayload{
			LoanID:     42,
			BookISBN:   "9781234567890",
			MemberCode: "ABC123",
			StartDate:  time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "endDate")
	assert.Contains(t, string(raw), `"memberCode":"ABC123"`)
}
