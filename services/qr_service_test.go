package services

import (
	"bytes"
	"image/png"
	"net/url"
	"strings"
	"testing"

	"github.com/CANDRY15/flashprint/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkBuilder(t *testing.T) {
	links := NewLinkBuilder("https://flashprint.cd/", "functions/v1/syllabus-file/", "2430815050397")
	slug := "droit-civil-i"
	s := &model.Syllabus{ID: "3f1c", Title: "Droit Civil I", Professor: "Me. Tshiswaka", Slug: &slug, QRCode: "FP-DRT-CIV1-2024"}

	assert.Equal(t, "https://flashprint.cd/syllabus/3f1c", links.QRCodeFor(s))
	s.Flow = model.FlowGenerator
	assert.Equal(t, "https://flashprint.cd/pdf/droit-civil-i", links.QRCodeFor(s))
	assert.Equal(t, "/functions/v1/syllabus-file/droit-civil-i", links.ProxyPath(slug))

	order := links.OrderLink(s.Title, s.QRCode)
	require.True(t, strings.HasPrefix(order, "https://wa.me/2430815050397?text="))
	u, err := url.Parse(order)
	require.NoError(t, err)
	assert.Equal(t, `Bonjour FlashPrint, je souhaite télécharger le syllabus "Droit Civil I" (Code: FP-DRT-CIV1-2024)`, u.Query().Get("text"))
	assert.NotContains(t, order, "+")
}

func TestShareLinkTruncates(t *testing.T) {
	links := NewLinkBuilder("https://flashprint.cd", "/files", "2430815050397")
	s := &model.Syllabus{Title: strings.Repeat("é", 250), Professor: "Dr. Kasongo", QRCode: strings.Repeat("Q", 80)}

	u, err := url.Parse(links.ShareLink(s))
	require.NoError(t, err)
	assert.Equal(t, "wa.me", u.Host)

	text := u.Query().Get("text")
	assert.Contains(t, text, "Syllabus: "+strings.Repeat("é", 200)+"\n")
	assert.NotContains(t, text, strings.Repeat("é", 201))
	assert.Contains(t, text, "Code QR: "+strings.Repeat("Q", 50)+"\n")
	assert.True(t, strings.HasSuffix(text, "Scannez le QR code ou contactez FlashPrint pour obtenir ce syllabus."))
}

func TestClassifyNeverRewrites(t *testing.T) {
	links := NewLinkBuilder("https://flashprint.cd", "/files", "243")
	assert.Equal(t, QRPayloadPlaceholder, links.Classify(model.QRCodePlaceholder))
	assert.Equal(t, QRPayloadPlaceholder, links.Classify(""))
	assert.Equal(t, QRPayloadProxy, links.Classify("https://flashprint.cd/syllabus/abc"))
	assert.Equal(t, QRPayloadMessaging, links.Classify("https://wa.me/243?text=x"))
	assert.Equal(t, QRPayloadRaw, links.Classify("FP-X7K2-1700000000"))
}

func TestRenderQRPNG(t *testing.T) {
	data, err := RenderQRPNG("https://flashprint.cd/syllabus/abc", 300)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())

	data, err = RenderQRPNG("FP-RAW", 5000)
	require.NoError(t, err)
	img, err = png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, DefaultQRSize, img.Bounds().Dx())
}
