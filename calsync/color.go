package calsync

import (
	"strconv"
	"strings"
)

const DefaultColorID = "1"

type Color struct {
	ID   string
	Name string
	Hex  string
}

// Palette is the fixed set of Google Calendar event colors
var Palette = []Color{
	{ID: "1", Name: "Lavender", Hex: "#7986cb"},
	{ID: "2", Name: "Sage", Hex: "#33b679"},
	{ID: "3", Name: "Grape", Hex: "#8e24aa"},
	{ID: "4", Name: "Flamingo", Hex: "#e67c73"},
	{ID: "5", Name: "Banana", Hex: "#f6bf26"},
	{ID: "6", Name: "Tangerine", Hex: "#f4511e"},
	{ID: "7", Name: "Peacock", Hex: "#039be5"},
	{ID: "8", Name: "Graphite", Hex: "#616161"},
	{ID: "9", Name: "Blueberry", Hex: "#3f51b5"},
	{ID: "10", Name: "Basil", Hex: "#0b8043"},
	{ID: "11", Name: "Tomato", Hex: "#d50000"},
}

// ColorFor maps a student id to a palette id. The first 8 hex digits of the
// id are read as a number so the color survives restarts and resyncs.
func ColorFor(studentID string) string {
	var hexDigits strings.Builder
	for _, r := range studentID {
		if hexDigits.Len() == 8 {
			break
		}
		if strings.ContainsRune("0123456789abcdefABCDEF", r) {
			hexDigits.WriteRune(r)
		}
	}
	if hexDigits.Len() == 0 {
		return DefaultColorID
	}
	n, err := strconv.ParseUint(hexDigits.String(), 16, 64)
	if err != nil {
		return DefaultColorID
	}
	return strconv.FormatUint(n%uint64(len(Palette))+1, 10)
}

func PaletteColor(id string) (Color, bool) {
	for _, c := range Palette {
		if c.ID == id {
			return c, true
		}
	}
	return Color{}, false
}
