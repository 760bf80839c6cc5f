// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package profile

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/kadirpekel/socialsim/pkg/store"
)

// twitterProfile is the flattened row shape Twitter-platform agents read;
// only the fields that platform's character sheet needs are kept.
type twitterProfile struct {
	UserID      int
	Name        string
	Username    string
	Char        string
	Description string
}

func toTwitterRow(p AgentProfile) twitterProfile {
	return twitterProfile{
		UserID:      p.UserID,
		Name:        p.DisplayName,
		Username:    p.UserName,
		Char:        p.Persona,
		Description: p.Bio,
	}
}

// WriteTwitterCSV renders profiles as the platform's
// user_id,name,username,user_char,description CSV.
func WriteTwitterCSV(fs *store.Store, path string, profiles []AgentProfile) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"user_id", "name", "username", "user_char", "description"}); err != nil {
		return fmt.Errorf("write twitter csv header: %w", err)
	}
	for _, p := range profiles {
		row := toTwitterRow(p)
		record := []string{
			strconv.Itoa(row.UserID),
			row.Name,
			row.Username,
			row.Char,
			row.Description,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write twitter csv row for user %d: %w", row.UserID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush twitter csv: %w", err)
	}

	return fs.WriteBytesAtomic(path, buf.Bytes())
}

// redditProfile is the JSON shape Reddit-platform agents read.
type redditProfile struct {
	UserID      int      `json:"user_id"`
	UserName    string   `json:"user_name"`
	DisplayName string   `json:"display_name"`
	Bio         string   `json:"bio"`
	Persona     string   `json:"persona"`
	Age         int      `json:"age"`
	Gender      string   `json:"gender"`
	MBTI        string   `json:"mbti"`
	Country     string   `json:"country"`
	Profession  string   `json:"profession"`
	Interests   []string `json:"interests"`
}

func toRedditEntry(p AgentProfile) redditProfile {
	return redditProfile{
		UserID:      p.UserID,
		UserName:    p.UserName,
		DisplayName: p.DisplayName,
		Bio:         p.Bio,
		Persona:     p.Persona,
		Age:         p.Age,
		Gender:      p.Gender,
		MBTI:        p.MBTI,
		Country:     p.Country,
		Profession:  p.Profession,
		Interests:   p.Interests,
	}
}

// WriteRedditJSON renders profiles as a JSON array, one object per agent,
// each carrying its own user_id.
func WriteRedditJSON(fs *store.Store, path string, profiles []AgentProfile) error {
	entries := make([]redditProfile, len(profiles))
	for i, p := range profiles {
		entries[i] = toRedditEntry(p)
	}
	return fs.WriteJSONAtomic(path, entries)
}

// SaveRealtime is the streaming-save callback GenerateAll invokes after
// every completed entity, persisting both platform views so a concurrent
// reader always sees a consistent, if partial, snapshot.
func SaveRealtime(fs *store.Store, twitterPath, redditPath string) func([]AgentProfile) error {
	return func(profiles []AgentProfile) error {
		if err := WriteTwitterCSV(fs, twitterPath, profiles); err != nil {
			return err
		}
		return WriteRedditJSON(fs, redditPath, profiles)
	}
}
