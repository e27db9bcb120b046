package bgg

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
)

// RootTag returns the tag name of the document's root element.
func RootTag(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				return "", fmt.Errorf("no root element found")
			}
			return "", fmt.Errorf("malformed XML: %w", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}

// InspectRoot checks that the document's root tag matches the expected value.
// Every API response is inspected before being written to disk so that an
// error page or HTML body never lands in the output directory.
func InspectRoot(data []byte, want string) error {
	got, err := RootTag(data)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("unexpected root tag: %s, expected: %s", got, want)
	}
	return nil
}

// collectionDoc is the subset of the collection response needed to extract
// item IDs.
type collectionDoc struct {
	Items []struct {
		ObjectID string `xml:"objectid,attr"`
	} `xml:"item"`
}

// ParseItemIDs extracts the BGG object ID of every item in a collection
// response. An item without an objectid attribute is an error.
func ParseItemIDs(data []byte) ([]int, error) {
	var doc collectionDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse collection: %w", err)
	}

	ids := make([]int, 0, len(doc.Items))
	for _, item := range doc.Items {
		if item.ObjectID == "" {
			return nil, fmt.Errorf("collection item missing objectid")
		}
		id, err := strconv.Atoi(item.ObjectID)
		if err != nil {
			return nil, fmt.Errorf("invalid objectid %q: %w", item.ObjectID, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// playsDoc is the subset of the plays response needed to detect an empty page.
type playsDoc struct {
	Plays []struct{} `xml:"play"`
}

// HasPlays reports whether a plays page contains at least one play.
// An empty page marks the end of the user's logged plays.
func HasPlays(data []byte) (bool, error) {
	var doc playsDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return false, fmt.Errorf("parse plays: %w", err)
	}
	return len(doc.Plays) > 0, nil
}
