package ui

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/xpmourad/ori-AI-Background-Remover/internal/media"
)

const halfBlock = "▀"

// renderEncoded decodes an encoded image and renders it to fit cols x rows
// terminal cells.
func renderEncoded(enc media.Encoded, cols, rows int, th Theme) (string, error) {
	raw, err := enc.Bytes()
	if err != nil {
		return "", err
	}
	return renderBytes(raw, cols, rows, th)
}

// renderBytes decodes raw image bytes and renders them like renderEncoded.
func renderBytes(raw []byte, cols, rows int, th Theme) (string, error) {
	img, err := media.Decode(raw)
	if err != nil {
		return "", err
	}
	return renderPreview(img, cols, rows, th), nil
}

// renderPreview draws img with half-block cells, two pixel rows per line.
// Transparent pixels are composited over a checkerboard.
func renderPreview(img image.Image, cols, rows int, th Theme) string {
	if img == nil || cols <= 0 || rows <= 0 {
		return ""
	}
	thumb := media.Thumbnail(img, cols, rows*2)
	b := thumb.Bounds()
	light := parseHex(th.CheckerLight, color.NRGBA{R: 0xcc, G: 0xcc, B: 0xcc, A: 0xff})
	dark := parseHex(th.CheckerDark, color.NRGBA{R: 0x99, G: 0x99, B: 0x99, A: 0xff})

	pixel := func(x, y int) color.NRGBA {
		bg := light
		if ((x/2)+(y/2))%2 == 1 {
			bg = dark
		}
		if y >= b.Dy() {
			return bg
		}
		c := color.NRGBAModel.Convert(thumb.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
		return over(c, bg)
	}

	var out strings.Builder
	for y := 0; y < b.Dy(); y += 2 {
		if y > 0 {
			out.WriteByte('\n')
		}
		for x := 0; x < b.Dx(); x++ {
			cell := lipgloss.NewStyle().
				Foreground(lipgloss.Color(hexOf(pixel(x, y)))).
				Background(lipgloss.Color(hexOf(pixel(x, y+1))))
			out.WriteString(cell.Render(halfBlock))
		}
	}
	return out.String()
}

// over composites c onto an opaque background.
func over(c, bg color.NRGBA) color.NRGBA {
	a := uint32(c.A)
	mix := func(fg, back uint8) uint8 {
		return uint8((uint32(fg)*a + uint32(back)*(255-a)) / 255)
	}
	return color.NRGBA{R: mix(c.R, bg.R), G: mix(c.G, bg.G), B: mix(c.B, bg.B), A: 0xff}
}

func hexOf(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func parseHex(s string, fallback color.NRGBA) color.NRGBA {
	var c color.NRGBA
	c.A = 0xff
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "#%2x%2x%2x", &c.R, &c.G, &c.B); err != nil {
		return fallback
	}
	return c
}
