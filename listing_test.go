package adbfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sdcardListing = `total 52K
drwxrwx--x  6 root sdcard_rw 3.4K 2024-03-02 11:20 .
drwx--x--x  4 root sdcard_rw 3.4K 2024-01-15 09:00 ..
drwxrwx--x  2 root sdcard_rw 3.4K 2024-02-10 08:12 DCIM
-rw-rw----  1 root sdcard_rw  12M 2024-02-11 18:45 movie.mp4
drwxrwx--x  3 root sdcard_rw 3.4K 2024-01-20 21:03 Android
-rw-rw----  1 root sdcard_rw  512 2024-03-01 07:30 notes from meeting.txt
lrwxrwxrwx  1 root root        21 2024-01-01 00:00 sdcard -> /storage/self/primary
`

func names(entries []RemoteEntry) []string {
	result := make([]string, len(entries))
	for i, entry := range entries {
		result[i] = entry.Name
	}
	return result
}

func TestParseListing(t *testing.T) {
	entries := ParseListing(sdcardListing)
	require.Len(t, entries, 7)

	assert.Equal(t, []string{".", "..", "Android", "DCIM", "movie.mp4", "notes from meeting.txt", "sdcard"}, names(entries))

	movie := entries[4]
	assert.Equal(t, KindFile, movie.Kind)
	assert.Equal(t, "12M", movie.Size)
	assert.Equal(t, "root", movie.Owner)
	assert.Equal(t, "sdcard_rw", movie.Group)
	assert.Equal(t, "2024-02-11 18:45", movie.ModifiedAt)
	assert.Equal(t, "-rw-rw----", movie.Permissions)

	dcim := entries[3]
	assert.True(t, dcim.IsDir())
	assert.Equal(t, "dir", dcim.Kind.String())
}

func TestParseListingSkipsMalformedLines(t *testing.T) {
	output := "total 8\n" +
		"\n" +
		"-rw-r--r-- 1 root root 10 2024-01-01 00:00 a\n" +
		"garbage line here\n" +
		"ls: x: denied\n" +
		"-rw-r--r-- 1 root root 20 2024-01-01 00:00 b\n" +
		"   \n" +
		"drwxr-xr-x 2 root root 4.0K 2024-01-01 00:00 c\n"

	entries := ParseListing(output)
	assert.Equal(t, []string{"c", "a", "b"}, names(entries))
}

// Directories first, then case-insensitive by name. See the ordering decision
// in DESIGN.md for why Alpha sorts ahead of beta.
func TestParseListingOrder(t *testing.T) {
	output := "-rw-r--r-- 1 u g 1 2024-01-01 00:00 zeta\n" +
		"drwxr-xr-x 2 u g 4.0K 2024-01-01 00:00 beta\n" +
		"drwxr-xr-x 2 u g 4.0K 2024-01-01 00:00 Alpha\n" +
		"-rw-r--r-- 1 u g 1 2024-01-01 00:00 Yak\n"

	entries := ParseListing(output)
	assert.Equal(t, []string{"Alpha", "beta", "Yak", "zeta"}, names(entries))
}

func TestParseListingUnknownTimestamp(t *testing.T) {
	output := "-?????????  ? ?      ?            ?                ? broken file\n" +
		"-rw-r--r--  1 root root 10 2024-01-01 00:00 ok\n"

	entries := ParseListing(output)
	require.Len(t, entries, 2)

	broken := entries[0]
	assert.Equal(t, "broken file", broken.Name)
	assert.Equal(t, UnknownTime, broken.ModifiedAt)
	assert.Equal(t, "?", broken.Size)
	assert.Equal(t, "-?????????", broken.Permissions)
}

func TestParseListingSymlink(t *testing.T) {
	entries := ParseListing("lrwxrwxrwx 1 root root 11 2024-01-01 00:00 etc -> /system/etc\n")
	require.Len(t, entries, 1)

	link := entries[0]
	assert.Equal(t, "etc", link.Name)
	assert.Equal(t, "/system/etc", link.LinkTarget)
	assert.True(t, link.IsSymlink())
	assert.False(t, link.IsDir())
	assert.Equal(t, "etc -> /system/etc", link.Display())
}

func TestParseListingShortLine(t *testing.T) {
	entries := ParseListing("-rw-r--r-- 1 root root 10 only\r\n")
	require.Len(t, entries, 1)
	assert.Equal(t, "only", entries[0].Name)
	assert.Equal(t, "10", entries[0].Size)
	assert.Empty(t, entries[0].ModifiedAt)
}

func TestRemoteEntryBytes(t *testing.T) {
	cases := map[string]uint64{
		"512":  512,
		"4.0K": 4096,
		"12M":  12 * 1024 * 1024,
		"1.5G": 1536 * 1024 * 1024,
	}
	for size, want := range cases {
		got, err := RemoteEntry{Size: size}.Bytes()
		require.NoError(t, err, size)
		assert.Equal(t, want, got, size)
	}

	_, err := RemoteEntry{Size: "?"}.Bytes()
	assert.Error(t, err)
}
