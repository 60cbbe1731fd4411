package otpx_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/civicstack/rms/pkg/otpx"
	"github.com/stretchr/testify/require"
)

// rfcSecret is the ASCII secret "12345678901234567890" from RFC 4226
// Appendix D, Base32-encoded.
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestCodeMatchesRFC4226Vectors(t *testing.T) {
	t.Parallel()

	// Published HOTP test values for counters 0-9.
	want := []string{
		"755224", "287082", "359152", "969429", "338314",
		"254676", "287922", "162583", "399871", "520489",
	}

	for counter, expected := range want {
		code, err := otpx.Code(rfcSecret, uint64(counter))
		require.NoError(t, err)
		require.Equal(t, expected, code, "counter %d", counter)
	}
}

func TestCodeIsDeterministic(t *testing.T) {
	t.Parallel()

	first, err := otpx.Code(rfcSecret, 42)
	require.NoError(t, err)
	for range 5 {
		again, err := otpx.Code(rfcSecret, 42)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
	require.Len(t, first, otpx.CodeDigits)
}

func TestCounterAtRFC6238Epoch(t *testing.T) {
	t.Parallel()

	// RFC 6238 Appendix B: Unix time 59 falls in step 1 with a 30s period.
	require.Equal(t, uint64(1), otpx.Counter(time.Unix(59, 0)))

	code, err := otpx.Code(rfcSecret, otpx.Counter(time.Unix(59, 0)))
	require.NoError(t, err)
	require.Equal(t, "287082", code)
}

func TestVerifyWindowTolerance(t *testing.T) {
	t.Parallel()

	now := time.Unix(30_000_000, 0) // counter 1_000_000
	engine := otpx.Engine{Window: 2, Now: func() time.Time { return now }}
	counter := otpx.Counter(now)

	tests := []struct {
		name   string
		offset int64
		want   bool
	}{
		{"current step", 0, true},
		{"two steps behind", -2, true},
		{"two steps ahead", +2, true},
		{"three steps behind", -3, false},
		{"three steps ahead", +3, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, err := otpx.Code(rfcSecret, uint64(int64(counter)+tc.offset))
			require.NoError(t, err)
			require.Equal(t, tc.want, engine.Verify(rfcSecret, code))
		})
	}
}

func TestVerifyRejectsMalformedInput(t *testing.T) {
	t.Parallel()

	now := time.Unix(30_000_000, 0)
	engine := otpx.Engine{Now: func() time.Time { return now }}

	valid, err := otpx.Code(rfcSecret, otpx.Counter(now))
	require.NoError(t, err)

	require.False(t, engine.Verify(rfcSecret, ""))
	require.False(t, engine.Verify(rfcSecret, "12345"))
	require.False(t, engine.Verify(rfcSecret, "1234567"))
	require.False(t, engine.Verify(rfcSecret, "12a456"))
	require.False(t, engine.Verify(rfcSecret, fmt.Sprintf(" %s ", "000000")))

	// Malformed secret fails closed even with a well-formed code.
	require.False(t, engine.Verify("not!base32", valid))
}

func TestVerifyAcceptsSurroundingWhitespace(t *testing.T) {
	t.Parallel()

	now := time.Unix(30_000_000, 0)
	engine := otpx.Engine{Now: func() time.Time { return now }}

	code, err := otpx.Code(rfcSecret, otpx.Counter(now))
	require.NoError(t, err)
	require.True(t, engine.Verify(rfcSecret, " "+code+" "))
}

func TestVerifyNearEpochDoesNotUnderflow(t *testing.T) {
	t.Parallel()

	// Counter 1 with window 2 would underflow a naive uint range.
	engine := otpx.Engine{Window: 2}
	code, err := otpx.Code(rfcSecret, 0)
	require.NoError(t, err)
	require.True(t, engine.VerifyAt(rfcSecret, code, time.Unix(59, 0)))
}
