package models

import (
	"encoding/json"
	"testing"
)

func TestUnixTimeDecode(t *testing.T) {
	tests := []struct {
		in   string
		want UnixTime
	}{
		{`1472671877`, 1472671877},
		{`"1472671877"`, 1472671877},
		{`1472671877.0`, 1472671877},
		{`null`, 0},
		{`""`, 0},
	}
	for _, tt := range tests {
		var got UnixTime
		if err := json.Unmarshal([]byte(tt.in), &got); err != nil {
			t.Fatalf("Unmarshal(%s): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Unmarshal(%s) = %d, want %d", tt.in, got, tt.want)
		}
	}

	var bad UnixTime
	if err := json.Unmarshal([]byte(`"yesterday"`), &bad); err == nil {
		t.Error("expected error for non-numeric timestamp")
	}
}

func TestAlertDecode(t *testing.T) {
	payload := `{
		"id": "a1", "alert_number": 7, "type": "pii", "url": "https://pastebin.com/x",
		"url_metadata": {"description": "paste"}, "ctime": 1472671877, "mtime": "1472671900",
		"seen": "true", "archived": "false", "upload_token": "tok"
	}`
	var a Alert
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !a.Seen || a.Archived {
		t.Errorf("flags = seen %v archived %v, want true false", a.Seen, a.Archived)
	}
	if a.Number != 7 || a.LastModified().Unix() != 1472671900 {
		t.Errorf("unexpected alert %+v", a)
	}
	if a.AlertIdent() != "a1" {
		t.Errorf("AlertIdent = %q", a.AlertIdent())
	}
}

func TestIdentifierDecode(t *testing.T) {
	var hits []SearchHit
	if err := json.Unmarshal([]byte(`[{"artifact_id": "abc", "score": 80}, {"artifact_id": 42, "score": 65.5}]`), &hits); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if hits[0].ArtifactID != "abc" || hits[1].ArtifactID != "42" {
		t.Errorf("ids = %q, %q", hits[0].ArtifactID, hits[1].ArtifactID)
	}
	if got := string(hits[0].RawArtifactID()); got != `"abc"` {
		t.Errorf("raw id = %s, want \"abc\"", got)
	}
	if got := string(hits[1].RawArtifactID()); got != "42" {
		t.Errorf("raw id = %s, want 42", got)
	}
	if got := string(SearchHit{ArtifactID: "x"}.RawArtifactID()); got != `"x"` {
		t.Errorf("raw id of literal hit = %s", got)
	}
}

func TestFeedPermanent(t *testing.T) {
	var f Feed
	if err := json.Unmarshal([]byte(`{"name": "test", "start_timestamp": 1472601600, "stop_timestamp": null}`), &f); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !f.End().IsZero() {
		t.Errorf("End = %v, want zero", f.End())
	}
	if f.Start().Unix() != 1472601600 {
		t.Errorf("Start = %v", f.Start())
	}
}

func TestRefs(t *testing.T) {
	var refs []ProjectRef = []ProjectRef{&Project{UploadToken: "tok"}, UploadToken("tok")}
	for _, r := range refs {
		if r.ProjectToken() != "tok" {
			t.Errorf("ProjectToken = %q", r.ProjectToken())
		}
	}
	if (&Record{ID: "r"}).RecordIdent() != RecordID("r").RecordIdent() {
		t.Error("record refs disagree")
	}
	if (&Feed{Name: "f"}).FeedIdent() != FeedName("f").FeedIdent() {
		t.Error("feed refs disagree")
	}
}
