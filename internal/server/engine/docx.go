package engine

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
)

// docx files are zip archives; all visible text lives in word/document.xml.
const documentXMLPath = "word/document.xml"

var (
	// placeholderPattern matches bracketed field names like [Patient Name].
	placeholderPattern = regexp.MustCompile(`\[([^\[\]]+)\]`)
	// textNodePattern matches the text nodes of document.xml.
	textNodePattern = regexp.MustCompile(`<w:t(?: [^>]*)?>([^<]*)</w:t>`)
)

var (
	xmlEscaper   = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	xmlUnescaper = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'", "&amp;", "&")
)

// Replacement records one inferred field of a template without placeholders:
// the exact text currently in the template and the value that replaces it.
type Replacement struct {
	Original string `json:"original"`
	New      string `json:"new"`
}

func documentXML(docxData []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(docxData), int64(len(docxData)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx archive: %w", err)
	}

	for _, f := range zr.File {
		if f.Name != documentXMLPath {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open %s: %w", documentXMLPath, err)
		}
		defer rc.Close()

		raw, err := io.ReadAll(rc)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", documentXMLPath, err)
		}

		return string(raw), nil
	}

	return "", errors.New("docx archive has no word/document.xml")
}

// paragraphTexts joins the text nodes of each paragraph, so a placeholder
// split across runs still reads as one string.
func paragraphTexts(docXML string) []string {
	var texts []string

	for _, chunk := range strings.Split(docXML, "</w:p>") {
		var sb strings.Builder
		for _, m := range textNodePattern.FindAllStringSubmatch(chunk, -1) {
			sb.WriteString(m[1])
		}

		if text := xmlUnescaper.Replace(sb.String()); strings.TrimSpace(text) != "" {
			texts = append(texts, text)
		}
	}

	return texts
}

// ScanPlaceholders returns the sorted set of bracketed field names in a docx
// template.
func ScanPlaceholders(docxData []byte) ([]string, error) {
	docXML, err := documentXML(docxData)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	for _, text := range paragraphTexts(docXML) {
		for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
			seen[m[1]] = true
		}
	}

	placeholders := make([]string, 0, len(seen))
	for name := range seen {
		placeholders = append(placeholders, name)
	}
	sort.Strings(placeholders)

	return placeholders, nil
}

// DocumentText returns the paragraph text of a docx file, one paragraph per
// line. It gives the extraction model the template's structure and tone.
func DocumentText(docxData []byte) (string, error) {
	docXML, err := documentXML(docxData)
	if err != nil {
		return "", err
	}

	return strings.Join(paragraphTexts(docXML), "\n"), nil
}

// FillTemplate substitutes field values into a docx template and returns the
// rebuilt archive. Bracketed placeholders are replaced with their field
// values; replacements, when present, swap inferred original text for the
// field's current value.
func FillTemplate(docxData []byte, data map[string]string, replacements map[string]Replacement) ([]byte, error) {
	docXML, err := documentXML(docxData)
	if err != nil {
		return nil, err
	}

	clean := make(map[string]string, len(data))
	for k, v := range data {
		clean[strings.TrimSpace(k)] = v
	}

	transform := func(text string) string {
		for field, meta := range replacements {
			if meta.Original == "" {
				continue
			}

			// The latest edited value wins over the inferred one.
			newVal, ok := clean[strings.TrimSpace(field)]
			if !ok {
				newVal = meta.New
			}

			text = strings.ReplaceAll(text, xmlEscaper.Replace(meta.Original), xmlEscaper.Replace(newVal))
		}

		for field, value := range clean {
			text = strings.ReplaceAll(text, "["+xmlEscaper.Replace(field)+"]", xmlEscaper.Replace(value))
		}

		return text
	}

	chunks := strings.Split(docXML, "</w:p>")
	for i, chunk := range chunks {
		chunks[i] = fillParagraph(chunk, transform)
	}

	return rebuildArchive(docxData, strings.Join(chunks, "</w:p>"))
}

// fillParagraph applies transform to the paragraph's joined text. When the
// text changes, the first text node carries the whole result and the rest
// are emptied, so placeholders split across runs are replaced whole.
func fillParagraph(chunk string, transform func(string) string) string {
	locs := textNodePattern.FindAllStringSubmatchIndex(chunk, -1)
	if len(locs) == 0 {
		return chunk
	}

	var joined strings.Builder
	for _, loc := range locs {
		joined.WriteString(chunk[loc[2]:loc[3]])
	}

	oldText := joined.String()
	newText := transform(oldText)
	if newText == oldText {
		return chunk
	}

	var sb strings.Builder
	last := 0
	for i, loc := range locs {
		sb.WriteString(chunk[last:loc[2]])
		if i == 0 {
			sb.WriteString(newText)
		}
		last = loc[3]
	}
	sb.WriteString(chunk[last:])

	return sb.String()
}

func rebuildArchive(docxData []byte, docXML string) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(docxData), int64(len(docxData)))
	if err != nil {
		return nil, fmt.Errorf("failed to open docx archive: %w", err)
	}

	var out bytes.Buffer
	zw := zip.NewWriter(&out)

	for _, f := range zr.File {
		w, err := zw.Create(f.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to create archive entry %s: %w", f.Name, err)
		}

		if f.Name == documentXMLPath {
			if _, err := io.WriteString(w, docXML); err != nil {
				return nil, fmt.Errorf("failed to write %s: %w", documentXMLPath, err)
			}
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open archive entry %s: %w", f.Name, err)
		}

		if _, err := io.Copy(w, rc); err != nil {
			rc.Close()
			return nil, fmt.Errorf("failed to copy archive entry %s: %w", f.Name, err)
		}
		rc.Close()
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize docx archive: %w", err)
	}

	return out.Bytes(), nil
}
