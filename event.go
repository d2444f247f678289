package astidvb

import (
	"strings"
	"time"
)

// Event represents a programme guide event described by an EIT
type Event struct {
	Aspect            Aspect
	Audio             Audio
	Categories        []string
	Data              interface{} // Kept across resets
	Descriptions      []*LocalizedText
	Duration          time.Duration
	EventID           uint16
	Key               string
	Language          string // Language of the first audio component
	PrimaryCRID       string
	Ratings           []*EventRating
	SecondaryCRID     string
	Service           *Service
	Start             time.Time
	SubTitles         []*LocalizedText
	SubtitleLanguages []string // Teletext subtitles
	Titles            []*LocalizedText
	TransportURI      string
	Version           int // -1 when unknown
}

// LocalizedText represents a text in a specific language
type LocalizedText struct {
	Language string
	Text     string
}

// EventRating represents a parental rating
type EventRating struct {
	CountryCode string
	MinimumAge  int
}

// Reset clears everything except the key and the data
func (e *Event) Reset() {
	e.Aspect = AspectInvalid
	e.Audio = AudioInvalid
	e.Categories = nil
	e.Descriptions = nil
	e.Duration = 0
	e.EventID = 0
	e.Language = ""
	e.PrimaryCRID = ""
	e.Ratings = nil
	e.SecondaryCRID = ""
	e.Service = nil
	e.Start = time.Time{}
	e.SubTitles = nil
	e.SubtitleLanguages = nil
	e.Titles = nil
	e.TransportURI = ""
	e.Version = -1
}

// Stop returns the end of the event
func (e *Event) Stop() time.Time {
	return e.Start.Add(e.Duration)
}

// Title returns the title in a specific language
func (e *Event) Title(language string) string {
	return localizedText(e.Titles, language)
}

// SubTitle returns the sub title in a specific language
func (e *Event) SubTitle(language string) string {
	return localizedText(e.SubTitles, language)
}

// Description returns the long description in a specific language
func (e *Event) Description(language string) string {
	return localizedText(e.Descriptions, language)
}

// QualifiedPrimaryCRID returns the primary CRID as an absolute crid:// URI
// Relative CRIDs are qualified with the default authority of the service, "undefined" when there's none
func (e *Event) QualifiedPrimaryCRID() string {
	if e.PrimaryCRID == "" {
		return ""
	}
	if !strings.HasPrefix(e.PrimaryCRID, "/") {
		return "crid://" + e.PrimaryCRID
	}
	authority := "undefined"
	if e.Service != nil && e.Service.Authority != "" {
		authority = e.Service.Authority
	}
	return "crid://" + authority + e.PrimaryCRID
}

func localizedText(ts []*LocalizedText, language string) string {
	for _, t := range ts {
		if t.Language == language {
			return t.Text
		}
	}
	return ""
}

// setLocalizedText replaces the text in the same language or appends it
func setLocalizedText(ts []*LocalizedText, language, text string) []*LocalizedText {
	for _, t := range ts {
		if t.Language == language {
			t.Text = text
			return ts
		}
	}
	return append(ts, &LocalizedText{Language: language, Text: text})
}

// appendLocalizedText appends text to the text in the same language
func appendLocalizedText(ts []*LocalizedText, language, text string) []*LocalizedText {
	for _, t := range ts {
		if t.Language == language {
			t.Text += text
			return ts
		}
	}
	return append(ts, &LocalizedText{Language: language, Text: text})
}
