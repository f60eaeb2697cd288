package activity

import (
	"testing"

	"github.com/google/uuid"
)

func TestUUIDProviderIssuesTimeOrderedIdentifiers(testContext *testing.T) {
	provider := NewUUIDProvider()
	first, err := provider.NewID()
	if err != nil {
		testContext.Fatalf("unexpected error: %v", err)
	}
	second, err := provider.NewID()
	if err != nil {
		testContext.Fatalf("unexpected error: %v", err)
	}
	if first == second {
		testContext.Fatalf("expected distinct identifiers, got %s twice", first)
	}

	parsed, err := uuid.Parse(first)
	if err != nil {
		testContext.Fatalf("expected a UUID, got %q: %v", first, err)
	}
	if parsed.Version() != 7 {
		testContext.Fatalf("expected UUIDv7, got version %d", parsed.Version())
	}
	if second < first {
		testContext.Fatalf("expected %s to sort after %s", second, first)
	}
}
