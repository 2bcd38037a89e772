package searchlog

import (
	"context"
	"testing"
	"time"

	"university-query-engine/internal/domain"
)

type fakeExecCall struct {
	query string
	args  []any
}

type fakeConn struct {
	execCalls []fakeExecCall
	execErr   error
	rows      Rows
	queryErr  error
}

func (f *fakeConn) Exec(ctx context.Context, query string, args ...any) error {
	f.execCalls = append(f.execCalls, fakeExecCall{query: query, args: args})
	return f.execErr
}

func (f *fakeConn) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.rows, nil
}

func (f *fakeConn) Ping(ctx context.Context) error { return nil }

func (f *fakeConn) Close() error { return nil }

func TestLogIsNoOpWithNilConn(t *testing.T) {
	l := NewLogger(nil)
	if err := l.Log(context.Background(), domain.SearchLog{Query: "x"}); err != nil {
		t.Fatalf("expected nil-conn Log to be a no-op, got %v", err)
	}
}

func TestLogInsertsWithNormalizedPattern(t *testing.T) {
	conn := &fakeConn{}
	l := NewLogger(conn)

	err := l.Log(context.Background(), domain.SearchLog{
		Query:     "  Học   PHÍ Là Bao Nhiêu?  ",
		UserID:    "u1",
		SessionID: "s1",
		TopScore:  0.3,
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(conn.execCalls) != 1 {
		t.Fatalf("expected one Exec call, got %d", len(conn.execCalls))
	}
	pattern := conn.execCalls[0].args[1].(string)
	want := QueryPattern("  Học   PHÍ Là Bao Nhiêu?  ")
	if pattern != want {
		t.Fatalf("expected normalized pattern %q, got %q", want, pattern)
	}
}

func TestQueryPatternFoldsCaseCollapsesWhitespaceAndTruncates(t *testing.T) {
	long := ""
	for i := 0; i < 150; i++ {
		long += "a"
	}
	got := QueryPattern("  " + long + "  ")
	if len(got) != 100 {
		t.Fatalf("expected pattern capped at 100 chars, got %d", len(got))
	}

	folded := QueryPattern("Hello   World")
	if folded != "hello world" {
		t.Fatalf("expected case-folded/whitespace-collapsed pattern, got %q", folded)
	}
}
