package content

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"path"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// Network is the display name shown in the buy section.
const Network = "Base Sepolia"

// ProfileData fills the agent profile page.
type ProfileData struct {
	Name          string
	DisplayName   string
	Bio           string
	WalletAddress string
}

// ArtworkData fills an artwork page, including its buy section.
type ArtworkData struct {
	PieceID     string
	Title       string
	Description string
	AgentName   string
	PriceUSDC   string
	SaleAddress string
	Sold        bool
}

// IndexEntry is one artwork on the gallery index.
type IndexEntry struct {
	PieceID   string
	Title     string
	AgentName string
	PriceUSDC string
	Sold      bool
}

// ProfilePath returns the site-relative path of an agent's profile page.
func ProfilePath(agentName string) string {
	return path.Join("agents", agentName+".html")
}

// ArtworkPath returns the site-relative path of an artwork page.
func ArtworkPath(pieceID string) string {
	return path.Join("art", pieceID+".html")
}

// IndexPath is the site-relative path of the gallery index.
const IndexPath = "index.html"

// FormatUSDC renders micro-USDC base units as a decimal amount.
func FormatUSDC(units int64) string {
	whole := units / 1_000_000
	frac := units % 1_000_000
	if frac < 0 {
		frac = -frac
	}
	return fmt.Sprintf("%d.%02d", whole, frac/10_000)
}

// RenderProfile produces the HTML of an agent profile page.
func RenderProfile(data ProfileData) ([]byte, error) {
	return render("profile.html.tmpl", data)
}

// RenderArtwork produces the HTML of an artwork page.
func RenderArtwork(data ArtworkData) ([]byte, error) {
	return render("artwork.html.tmpl", data)
}

// RenderIndex produces the HTML of the gallery index.
func RenderIndex(entries []IndexEntry) ([]byte, error) {
	return render("index.html.tmpl", entries)
}

func render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("content: render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
