package services

import (
	"fmt"
	"image/color"
	"net/url"
	"strings"

	"github.com/CANDRY15/flashprint/model"
	qrcode "github.com/skip2/go-qrcode"
)

// QRPayloadKind classifies a stored qr_code value. The value itself is
// opaque: older rows hold raw codes or messaging links and are never
// rewritten.
type QRPayloadKind string

const (
	QRPayloadPlaceholder QRPayloadKind = "placeholder"
	QRPayloadProxy       QRPayloadKind = "proxy"
	QRPayloadMessaging   QRPayloadKind = "messaging"
	QRPayloadRaw         QRPayloadKind = "raw"
)

// Brand colors of rendered codes
var (
	QRForeground = color.RGBA{R: 0x65, G: 0x94, B: 0xFF, A: 0xFF}
	QRBackground = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
)

const (
	DefaultQRSize = 256
	MinQRSize     = 128
	MaxQRSize     = 1024
)

// LinkBuilder constructs every public link that points at a syllabus
type LinkBuilder struct {
	baseURL   string
	proxyBase string
	whatsApp  string
}

func NewLinkBuilder(publicBaseURL, proxyBase, whatsAppNumber string) *LinkBuilder {
	return &LinkBuilder{
		baseURL:   strings.TrimRight(publicBaseURL, "/"),
		proxyBase: "/" + strings.Trim(proxyBase, "/"),
		whatsApp:  whatsAppNumber,
	}
}

// QRCodeFor is the final qr_code of a row: the viewer route for the
// management flow and the scan route for the generator flow
func (l *LinkBuilder) QRCodeFor(s *model.Syllabus) string {
	if s.Flow == model.FlowGenerator {
		return l.ScanURL(s.SlugOrID())
	}
	return l.ViewerURL(s.ID)
}

// ViewerURL is the document detail route
func (l *LinkBuilder) ViewerURL(slugOrID string) string {
	return fmt.Sprintf("%s/syllabus/%s", l.baseURL, url.PathEscape(slugOrID))
}

// ScanURL is the route printed on generated codes; it opens the viewer in
// QR mode
func (l *LinkBuilder) ScanURL(slugOrID string) string {
	return fmt.Sprintf("%s/pdf/%s", l.baseURL, url.PathEscape(slugOrID))
}

// ProxyPath is the file-proxy path relative to the API host
func (l *LinkBuilder) ProxyPath(slugOrID string) string {
	return fmt.Sprintf("%s/%s", l.proxyBase, url.PathEscape(slugOrID))
}

// OrderLink is the messaging deep link used to order a printed copy
func (l *LinkBuilder) OrderLink(title, code string) string {
	msg := fmt.Sprintf(`Bonjour FlashPrint, je souhaite télécharger le syllabus "%s" (Code: %s)`,
		truncateRunes(title, 200), truncateRunes(code, 50))
	return fmt.Sprintf("https://wa.me/%s?text=%s", l.whatsApp, encodeURIComponent(msg))
}

// ShareLink is the recipient-less messaging link of the share dialog
func (l *LinkBuilder) ShareLink(s *model.Syllabus) string {
	msg := fmt.Sprintf("Syllabus: %s\nProfesseur: %s\nCode QR: %s\n\nScannez le QR code ou contactez FlashPrint pour obtenir ce syllabus.",
		truncateRunes(s.Title, 200), truncateRunes(s.Professor, 100), truncateRunes(s.QRCode, 50))
	return "https://wa.me/?text=" + encodeURIComponent(msg)
}

// Classify tells which kind of payload a stored qr_code holds
func (l *LinkBuilder) Classify(payload string) QRPayloadKind {
	switch {
	case payload == "" || payload == model.QRCodePlaceholder:
		return QRPayloadPlaceholder
	case strings.HasPrefix(payload, "https://wa.me/") || strings.HasPrefix(payload, "https://api.whatsapp.com/"):
		return QRPayloadMessaging
	case strings.HasPrefix(payload, "http://") || strings.HasPrefix(payload, "https://"):
		return QRPayloadProxy
	default:
		return QRPayloadRaw
	}
}

// RenderQRPNG encodes content as a PNG of size x size pixels in brand colors
func RenderQRPNG(content string, size int) ([]byte, error) {
	if size < MinQRSize || size > MaxQRSize {
		size = DefaultQRSize
	}

	code, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	code.ForegroundColor = QRForeground
	code.BackgroundColor = QRBackground

	png, err := code.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR code: %w", err)
	}
	return png, nil
}

// encodeURIComponent escapes s for a query value, spaces as %20
func encodeURIComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
