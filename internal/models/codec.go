package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// SessionDoc is the wire/storage form of a Session. All timestamps are
// ISO-8601 strings so the payload survives any JSON store unchanged.
type SessionDoc struct {
	ID           string     `json:"id"`
	StartTime    string     `json:"startTime"`
	EndTime      *string    `json:"endTime"`
	Duration     int        `json:"duration"`
	IsActive     bool       `json:"isActive"`
	FaceDetected bool       `json:"faceDetected"`
	Breaks       []BreakDoc `json:"breaks"`
}

type BreakDoc struct {
	ID        string  `json:"id"`
	StartTime string  `json:"startTime"`
	EndTime   *string `json:"endTime"`
	Duration  int     `json:"duration"`
	Reason    string  `json:"reason"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// EncodeSession converts a Session to its storage document.
func EncodeSession(s Session) SessionDoc {
	doc := SessionDoc{
		ID:           s.ID,
		StartTime:    formatTime(s.StartTime),
		Duration:     s.Duration,
		IsActive:     s.IsActive,
		FaceDetected: s.FaceDetected,
		Breaks:       make([]BreakDoc, len(s.Breaks)),
	}
	if s.EndTime != nil {
		v := formatTime(*s.EndTime)
		doc.EndTime = &v
	}
	for i, b := range s.Breaks {
		bd := BreakDoc{
			ID:        b.ID,
			StartTime: formatTime(b.StartTime),
			Duration:  b.Duration,
			Reason:    string(b.Reason),
		}
		if b.EndTime != nil {
			v := formatTime(*b.EndTime)
			bd.EndTime = &v
		}
		doc.Breaks[i] = bd
	}
	return doc
}

// DecodeSession reconstructs a Session from its storage document,
// rehydrating timestamps recursively for nested breaks.
func DecodeSession(doc SessionDoc) (Session, error) {
	start, err := parseTime(doc.StartTime)
	if err != nil {
		return Session{}, fmt.Errorf("session %s: bad startTime: %w", doc.ID, err)
	}

	s := Session{
		ID:           doc.ID,
		StartTime:    start,
		Duration:     doc.Duration,
		IsActive:     doc.IsActive,
		FaceDetected: doc.FaceDetected,
		Breaks:       make([]Break, len(doc.Breaks)),
	}
	if doc.EndTime != nil {
		end, err := parseTime(*doc.EndTime)
		if err != nil {
			return Session{}, fmt.Errorf("session %s: bad endTime: %w", doc.ID, err)
		}
		s.EndTime = &end
	}

	for i, bd := range doc.Breaks {
		bStart, err := parseTime(bd.StartTime)
		if err != nil {
			return Session{}, fmt.Errorf("break %s: bad startTime: %w", bd.ID, err)
		}
		b := Break{
			ID:        bd.ID,
			StartTime: bStart,
			Duration:  bd.Duration,
			Reason:    BreakReason(bd.Reason),
		}
		if bd.EndTime != nil {
			bEnd, err := parseTime(*bd.EndTime)
			if err != nil {
				return Session{}, fmt.Errorf("break %s: bad endTime: %w", bd.ID, err)
			}
			b.EndTime = &bEnd
		}
		s.Breaks[i] = b
	}

	return s, nil
}

// MarshalSessions serializes a session list for the durable KV slot.
func MarshalSessions(sessions []Session) ([]byte, error) {
	docs := make([]SessionDoc, len(sessions))
	for i, s := range sessions {
		docs[i] = EncodeSession(s)
	}
	return json.Marshal(docs)
}

// UnmarshalSessions deserializes a session list. The payload is validated
// against the session schema before decoding.
func UnmarshalSessions(data []byte) ([]Session, error) {
	if err := ValidateSessionsPayload(data); err != nil {
		return nil, err
	}

	var docs []SessionDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("unmarshal sessions: %w", err)
	}

	out := make([]Session, 0, len(docs))
	for _, doc := range docs {
		s, err := DecodeSession(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
