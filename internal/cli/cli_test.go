package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHours = `
locations:
  - code: GISHUSHU
    name: Gishushu Main Library
  - code: MASORO
    name: Masoro Campus Library
weekly:
  - location: GISHUSHU
    day: THURSDAY
    is_open: true
    open: "08:00"
    close: "20:00"
  - location: GISHUSHU
    day: FRIDAY
    is_open: true
    open: "08:00"
    close: "20:00"
    special_close: "15:00"
    message: Early close on Fridays
  - location: GISHUSHU
    day: SATURDAY
    is_open: false
closures:
  - date: "2026-12-25"
    closed_all_day: true
    reason: Christmas (library)
public_holidays: false
`

func runCmd(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true

	path := filepath.Join(t.TempDir(), "hours.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testHours), 0o600))

	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--hours", path, "--tz", "UTC"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestDayCmd(t *testing.T) {
	out, err := runCmd(t, DayCmd(), "--date", "2026-10-15", "--days", "3")
	require.NoError(t, err)

	assert.Contains(t, out, "2026-10-15  Thursday   8:00 AM – 8:00 PM")
	assert.Contains(t, out, "2026-10-16  Friday     8:00 AM – 3:00 PM  (Early close on Fridays)")
	assert.Contains(t, out, "2026-10-17  Saturday   Closed")
}

func TestDayCmd_Exception(t *testing.T) {
	out, err := runCmd(t, DayCmd(), "-d", "2026-12-25")
	require.NoError(t, err)
	assert.Contains(t, out, "Closed  (Christmas (library))")
}

func TestDayCmd_Errors(t *testing.T) {
	_, err := runCmd(t, DayCmd(), "--date", "15/10/2026")
	assert.ErrorContains(t, err, "expected YYYY-MM-DD")

	_, err = runCmd(t, DayCmd(), "--location", "KIGALI")
	assert.ErrorContains(t, err, `unknown location "KIGALI"`)
}

func TestMonthCmd(t *testing.T) {
	out, err := runCmd(t, MonthCmd(), "--month", "2026-10")
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace([]byte(out)), []byte("\n"))
	require.Len(t, lines, 8)
	assert.Equal(t, "October 2026 - GISHUSHU", string(lines[0]))
	assert.Equal(t, " Su  Mo  Tu  We  Th  Fr  Sa", string(lines[1]))
	// Grid starts on Sunday 27 September.
	assert.Equal(t, " 27  28  29  30   1   2   3", string(lines[2]))
}

func TestMonthCmd_BadMonth(t *testing.T) {
	_, err := runCmd(t, MonthCmd(), "--month", "October")
	assert.ErrorContains(t, err, "expected YYYY-MM")
}

func TestStatusCmd(t *testing.T) {
	out, err := runCmd(t, StatusCmd(), "--at", "2026-10-16T14:00")
	require.NoError(t, err)

	assert.Contains(t, out, "GISHUSHU: OPEN")
	assert.Contains(t, out, "Early close on Fridays")
	assert.Contains(t, out, "Closes Fri 16 Oct 15:00")
	assert.Contains(t, out, "Closing soon")
}

func TestStatusCmd_ClosedUntilNextOpening(t *testing.T) {
	out, err := runCmd(t, StatusCmd(), "--at", "2026-10-17T10:00")
	require.NoError(t, err)

	assert.Contains(t, out, "GISHUSHU: CLOSED")
	assert.Contains(t, out, "Opens Thu 22 Oct 08:00")
	assert.NotContains(t, out, "Closing soon")
}

func TestStatusCmd_NoScheduleAtAll(t *testing.T) {
	out, err := runCmd(t, StatusCmd(), "-l", "MASORO", "--at", "2026-10-17T10:00")
	require.NoError(t, err)

	assert.Contains(t, out, "MASORO: CLOSED")
	assert.Contains(t, out, "No change within the next two weeks")
}
