package data

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var textReplacer = strings.NewReplacer(
	"\u2011", "-",
	"\u2013", "-",
	"\u2014", "-",
	"\u2018", "'",
	"\u2019", "'",
	"\u201c", `"`,
	"\u201d", `"`,
	"\u00ad", "",
	"\u200b", "",
)

// CleanText normalises punctuation the PDF core fonts cannot draw.
func CleanText(s string) string {
	return textReplacer.Replace(s)
}

// ReadText reads a UTF-8 text file, trimmed and cleaned.
func ReadText(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return CleanText(strings.TrimSpace(string(bytes.ToValidUTF8(b, nil)))), nil
}

const wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// ReadDocx extracts the non-empty paragraphs of a .docx file, one per line.
// Numbered or bulleted paragraphs are prefixed with "- ".
func ReadDocx(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("failed to open docx %s: %w", path, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open document part: %w", err)
		}
		defer rc.Close()
		lines, err := docxParagraphs(rc)
		if err != nil {
			return "", fmt.Errorf("failed to parse docx %s: %w", path, err)
		}
		return CleanText(strings.TrimSpace(strings.Join(lines, "\n"))), nil
	}
	return "", fmt.Errorf("docx %s has no word/document.xml", path)
}

func docxParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		lines  []string
		buf    strings.Builder
		inPara bool
		inText bool
		isList bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return nil, err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Space != wordNS {
				continue
			}
			switch el.Name.Local {
			case "p":
				inPara, isList = true, false
				buf.Reset()
			case "numPr":
				if inPara {
					isList = true
				}
			case "t":
				inText = true
			case "tab":
				buf.WriteByte('\t')
			case "br", "cr":
				buf.WriteByte('\n')
			}
		case xml.EndElement:
			if el.Name.Space != wordNS {
				continue
			}
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				text := strings.TrimSpace(buf.String())
				if text != "" {
					if isList {
						text = "- " + text
					}
					lines = append(lines, text)
				}
				inPara = false
			}
		case xml.CharData:
			if inText {
				buf.Write(el)
			}
		}
	}
}

var dailyMarketRead = regexp.MustCompile(`(?i)^daily\s+market read:\s*`)

// ReadMarketReadHTML reduces a generated Market Read page to plain lines:
// style and script blocks are dropped, list items become "- " lines and
// the standalone "Market Read" banner is removed.
func ReadMarketReadHTML(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return MarketReadText(bytes.NewReader(b)), nil
}

// MarketReadText is ReadMarketReadHTML over a reader.
func MarketReadText(r io.Reader) string {
	var (
		sb     strings.Builder
		skip   int
		bullet bool
	)
	z := html.NewTokenizer(r)
loop:
	for {
		switch z.Next() {
		case html.ErrorToken:
			break loop
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "style", "script":
				skip++
			case "br":
				sb.WriteByte('\n')
			case "li":
				sb.WriteString("- ")
				bullet = true
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "style", "script":
				if skip > 0 {
					skip--
				}
			case "p", "li":
				sb.WriteByte('\n')
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			text := string(z.Text())
			if bullet {
				text = strings.TrimLeft(text, " \t\r\n\u00a0")
				bullet = text == ""
			}
			sb.WriteString(text)
		}
	}

	var lines []string
	for _, ln := range strings.Split(strings.ReplaceAll(sb.String(), "\u00a0", " "), "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" || strings.EqualFold(ln, "market read") {
			continue
		}
		lines = append(lines, dailyMarketRead.ReplaceAllString(ln, "Market Read: "))
	}
	return CleanText(strings.Join(lines, "\n"))
}
