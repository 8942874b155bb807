package models

import (
	"encoding/json"
	"time"
)

// SearchHit is one match returned by the fingerprint index. ArtifactID only
// serves to join the hit with its artifact details.
type SearchHit struct {
	ArtifactID Identifier `json:"artifact_id"`
	Score      float64    `json:"score"`

	rawID json.RawMessage
}

// UnmarshalJSON implements json.Unmarshaler. The artifact id is kept in the
// JSON form the index sent.
func (h *SearchHit) UnmarshalJSON(data []byte) error {
	var aux struct {
		ArtifactID json.RawMessage `json:"artifact_id"`
		Score      float64         `json:"score"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	h.Score = aux.Score
	h.ArtifactID = ""
	h.rawID = nil
	if len(aux.ArtifactID) == 0 {
		return nil
	}
	if err := h.ArtifactID.UnmarshalJSON(aux.ArtifactID); err != nil {
		return err
	}
	h.rawID = aux.ArtifactID
	return nil
}

// RawArtifactID returns the artifact id as the index reported it, a JSON
// string or number.
func (h SearchHit) RawArtifactID() json.RawMessage {
	if h.rawID != nil {
		return h.rawID
	}
	raw, _ := json.Marshal(string(h.ArtifactID))
	return raw
}

// ArtifactDetail is the crawl history of one artifact, unix timestamp
// (as a string) to URL.
type ArtifactDetail struct {
	URL map[string]string `json:"url"`
}

// SearchResult is one (score, timestamp, url) triple produced by a search.
type SearchResult struct {
	Score float64   `json:"score"`
	TS    time.Time `json:"ts"`
	URL   string    `json:"url"`
}
