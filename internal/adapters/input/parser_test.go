package input

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCLFParser(t *testing.T) {
	parser := NewCLFParser()

	tests := []struct {
		name       string
		line       string
		wantErr    bool
		wantIP     string
		wantMethod string
		wantPath   string
		wantStatus int
	}{
		{
			name:       "combined format GET",
			line:       `203.0.113.5 - - [01/Jun/2025:10:00:00 +0000] "GET /admin/login.php HTTP/1.1" 401 1234 "-" "Mozilla/5.0"`,
			wantIP:     "203.0.113.5",
			wantMethod: "GET",
			wantPath:   "/admin/login.php",
			wantStatus: 401,
		},
		{
			name:       "common format without referer and agent",
			line:       `198.51.100.7 - frank [10/Oct/2024:13:55:36 -0700] "POST /api/users HTTP/1.0" 201 2326`,
			wantIP:     "198.51.100.7",
			wantMethod: "POST",
			wantPath:   "/api/users",
			wantStatus: 201,
		},
		{
			name:       "zoneless timestamp",
			line:       `192.0.2.1 - - [01/Jun/2025:10:00:00] "GET /search?q=1 HTTP/1.1" 200 99`,
			wantIP:     "192.0.2.1",
			wantMethod: "GET",
			wantPath:   "/search?q=1",
			wantStatus: 200,
		},
		{
			name:       "ipv6 source",
			line:       `2001:db8::1 - - [01/Jun/2025:10:00:00 +0000] "GET / HTTP/1.1" 200 512 "-" "curl/8.0"`,
			wantIP:     "2001:db8::1",
			wantMethod: "GET",
			wantPath:   "/",
			wantStatus: 200,
		},
		{
			name:    "missing status code",
			line:    `192.0.2.1 - - [01/Jun/2025:10:00:00 +0000] "GET / HTTP/1.1"`,
			wantErr: true,
		},
		{
			name:    "not an ip",
			line:    `nonsense - - [01/Jun/2025:10:00:00 +0000] "GET / HTTP/1.1" 200 99`,
			wantErr: true,
		},
		{
			name:    "missing timestamp",
			line:    `192.0.2.1 - - "GET / HTTP/1.1" 200 99 extra padding here`,
			wantErr: true,
		},
		{
			name:    "garbage timestamp",
			line:    `192.0.2.1 - - [not a date at all] "GET / HTTP/1.1" 200 99`,
			wantErr: true,
		},
		{
			name:    "empty line",
			line:    "",
			wantErr: true,
		},
		{
			name:    "request without path",
			line:    `192.0.2.1 - - [01/Jun/2025:10:00:00 +0000] "GET" 200 99`,
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := parser.Parse(tc.line)

			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrParse)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantIP, ev.IP.String())
			assert.Equal(t, tc.wantMethod, ev.Method)
			assert.Equal(t, tc.wantPath, ev.Path)
			assert.Equal(t, tc.wantStatus, ev.StatusCode)
			assert.Equal(t, tc.line, ev.RawLine)
		})
	}
}

func TestCLFParserTimestamp(t *testing.T) {
	parser := NewCLFParser()
	ev, err := parser.Parse(`192.0.2.1 - - [01/Jun/2025:10:30:00 +0200] "GET / HTTP/1.1" 200 99`)
	require.NoError(t, err)

	want := time.Date(2025, 6, 1, 10, 30, 0, 0, time.FixedZone("", 2*3600))
	assert.True(t, ev.Timestamp.Equal(want))
}

func TestCLFParserInvalidUTF8(t *testing.T) {
	parser := NewCLFParser()
	line := "192.0.2.1 - - [01/Jun/2025:10:00:00 +0000] \"GET /\xff\xfe HTTP/1.1\" 400 0"

	ev, err := parser.Parse(line)
	require.NoError(t, err)
	assert.Equal(t, "/��", ev.Path)
	assert.Equal(t, 400, ev.StatusCode)
}

func TestCLFParserEscapedQuoteInRequest(t *testing.T) {
	parser := NewCLFParser()
	line := `192.0.2.1 - - [01/Jun/2025:10:00:00 +0000] "GET /a\"b HTTP/1.1" 404 0`

	ev, err := parser.Parse(line)
	require.NoError(t, err)
	assert.Equal(t, `/a\"b`, ev.Path)
	assert.Equal(t, 404, ev.StatusCode)
}
