package profile

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"testing"

	"github.com/kadirpekel/socialsim/pkg/store"
	"github.com/stretchr/testify/require"
)

func TestWriteTwitterCSV_RoundTrips(t *testing.T) {
	fs, err := store.New(t.TempDir())
	require.NoError(t, err)

	path := fs.TwitterProfilesPath("sim1")
	profiles := []AgentProfile{
		{UserID: 0, DisplayName: "Jane Doe", UserName: "jane_doe", Persona: "curious", Bio: "A teacher"},
		{UserID: 1, DisplayName: "Acme Corp", UserName: "acme_corp", Persona: "formal", Bio: "A company"},
	}

	require.NoError(t, WriteTwitterCSV(fs, path, profiles))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3) // header + 2 rows
	require.Equal(t, []string{"user_id", "name", "username", "user_char", "description"}, records[0])
	require.Equal(t, "jane_doe", records[1][2])
}

func TestWriteRedditJSON_RoundTrips(t *testing.T) {
	fs, err := store.New(t.TempDir())
	require.NoError(t, err)

	path := fs.RedditProfilesPath("sim1")
	profiles := []AgentProfile{
		{UserID: 0, UserName: "jane_doe", Interests: []string{"reading", "chess"}},
	}

	require.NoError(t, WriteRedditJSON(fs, path, profiles))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded []redditProfile
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	require.Equal(t, 0, decoded[0].UserID)
	require.Equal(t, []string{"reading", "chess"}, decoded[0].Interests)
}
