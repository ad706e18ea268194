package services

import (
	"context"
	"path"
	"strings"

	"github.com/CANDRY15/flashprint/model"
)

// FileKind is the display label of an attached file
type FileKind string

const (
	KindPDF        FileKind = "PDF"
	KindPowerPoint FileKind = "PowerPoint"
	KindWord       FileKind = "Word"
	KindExcel      FileKind = "Excel"
	KindText       FileKind = "Texte"
	KindDocument   FileKind = "Document"
)

// Preview tells the client whether the file can be shown inline
type Preview struct {
	Inline  bool   `json:"inline"`
	Message string `json:"message,omitempty"`
}

// DocumentView is the payload of the document viewer
type DocumentView struct {
	Document    *model.Syllabus `json:"document"`
	Faculty     *model.Faculty  `json:"faculty,omitempty"`
	Kind        FileKind        `json:"kind"`
	Preview     Preview         `json:"preview"`
	HasFile     bool            `json:"has_file"`
	ProxyURL    string          `json:"proxy_url,omitempty"`
	DownloadURL string          `json:"download_url,omitempty"`
	OrderLink   string          `json:"order_link"`
}

type ViewerService struct {
	docs      DocumentResolver
	analytics *AnalyticsService
	links     *LinkBuilder
}

func NewViewerService(docs DocumentResolver, analytics *AnalyticsService, links *LinkBuilder) *ViewerService {
	return &ViewerService{docs: docs, analytics: analytics, links: links}
}

// View resolves a document and records a view, or a qr_scan when the
// request came from a printed code. Recording never delays the response.
func (s *ViewerService) View(ctx context.Context, slugOrID string, fromQR bool, userAgent string) (*DocumentView, error) {
	doc, err := s.docs.Resolve(ctx, slugOrID)
	if err != nil {
		return nil, err
	}

	event := model.EventView
	if fromQR {
		event = model.EventQRScan
	}
	s.analytics.Record(doc.ID, event, userAgent)

	return s.Build(doc), nil
}

// Build assembles the viewer payload without recording anything
func (s *ViewerService) Build(doc *model.Syllabus) *DocumentView {
	view := &DocumentView{
		Document:  doc,
		Faculty:   doc.Faculty,
		HasFile:   doc.HasFile(),
		OrderLink: s.links.OrderLink(doc.Title, doc.QRCode),
	}

	fileURL := ""
	if doc.HasFile() {
		fileURL = *doc.FileURL
		id := doc.SlugOrID()
		view.ProxyURL = s.links.ProxyPath(id)
		view.DownloadURL = "/api/v1/documents/" + id + "/download"
	}

	view.Kind = DetectFileKind(fileURL)
	if view.Kind == KindPDF {
		view.Preview = Preview{Inline: true}
	} else {
		view.Preview = Preview{Message: "Aperçu non disponible pour ce type de fichier. Téléchargez le fichier pour le consulter."}
	}
	return view
}

var kindsByExtension = []struct {
	exts []string
	kind FileKind
}{
	{[]string{"pdf"}, KindPDF},
	{[]string{"pptx", "ppt"}, KindPowerPoint},
	{[]string{"docx", "doc"}, KindWord},
	{[]string{"xlsx", "xls"}, KindExcel},
	{[]string{"txt"}, KindText},
}

// DetectFileKind infers the kind from the lowercased URL: it must end with
// ".ext" or contain ".ext?"
func DetectFileKind(fileURL string) FileKind {
	u := strings.ToLower(fileURL)
	if u == "" {
		return KindDocument
	}

	for _, k := range kindsByExtension {
		for _, ext := range k.exts {
			if strings.HasSuffix(u, "."+ext) || strings.Contains(u, "."+ext+"?") {
				return k.kind
			}
		}
	}
	return KindDocument
}

var extensionsByMime = map[string]string{
	"application/pdf":    "pdf",
	"application/msword": "doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   "docx",
	"application/vnd.ms-powerpoint":                                             "ppt",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": "pptx",
	"application/vnd.ms-excel":                                                  "xls",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         "xlsx",
	"text/plain": "txt",
}

// DownloadFilename is "<title>.<ext>". The extension comes from the content
// type, then from the URL path, then falls back to "bin".
func DownloadFilename(title, contentType, fileURL string) string {
	return title + "." + downloadExtension(contentType, fileURL)
}

func downloadExtension(contentType, fileURL string) string {
	mime := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if ext, ok := extensionsByMime[mime]; ok {
		return ext
	}

	p := fileURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if ext := strings.TrimPrefix(path.Ext(p), "."); ext != "" && !strings.Contains(ext, "/") {
		return strings.ToLower(ext)
	}
	return "bin"
}
