package content

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFSPublisher_PublishAndRemove(t *testing.T) {
	root := t.TempDir()
	pub := NewFSPublisher(root)
	ctx := context.Background()

	path, err := pub.Publish(ctx, "art/genesis-001.html", []byte("<html>piece</html>"))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if path != "art/genesis-001.html" {
		t.Errorf("returned path = %s", path)
	}

	data, err := os.ReadFile(filepath.Join(root, "art", "genesis-001.html"))
	if err != nil {
		t.Fatalf("read published file: %v", err)
	}
	if !bytes.Contains(data, []byte("piece")) {
		t.Errorf("unexpected content: %s", data)
	}

	if err := pub.Remove(ctx, "art/genesis-001.html"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "art", "genesis-001.html")); !os.IsNotExist(err) {
		t.Errorf("file still present after remove")
	}

	// Removing again is not an error.
	if err := pub.Remove(ctx, "art/genesis-001.html"); err != nil {
		t.Errorf("second remove: %v", err)
	}
}

func TestFSPublisher_PathTraversalConfined(t *testing.T) {
	root := t.TempDir()
	pub := NewFSPublisher(root)

	if _, err := pub.Publish(context.Background(), "../outside.html", []byte("x")); err != nil {
		// rejecting is fine
		return
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(root), "outside.html")); err == nil {
		t.Fatalf("publish escaped the site root")
	}
}

func TestRenderArtwork(t *testing.T) {
	html, err := RenderArtwork(ArtworkData{
		PieceID:     "genesis-001",
		Title:       "Threshold 001",
		Description: "a study in thresholds",
		AgentName:   "vermeer",
		PriceUSDC:   FormatUSDC(100_000),
		SaleAddress: "0x2222222222222222222222222222222222222222",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"0.10 USDC", "Base Sepolia", "Threshold 001", "genesis-001"} {
		if !bytes.Contains(html, []byte(want)) {
			t.Errorf("artwork page missing %q", want)
		}
	}
}

func TestRenderArtwork_Sold(t *testing.T) {
	html, err := RenderArtwork(ArtworkData{PieceID: "genesis-002", Title: "t", AgentName: "a", Sold: true})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.Contains(html, []byte("sold")) {
		t.Errorf("sold page missing marker")
	}
	if bytes.Contains(html, []byte("buy-price")) {
		t.Errorf("sold page still shows price block")
	}
}

func TestRenderProfileAndIndex(t *testing.T) {
	profile, err := RenderProfile(ProfileData{
		Name: "vermeer", DisplayName: "Vermeer", Bio: "paints light",
		WalletAddress: "0x1111111111111111111111111111111111111111",
	})
	if err != nil {
		t.Fatalf("render profile: %v", err)
	}
	if !bytes.Contains(profile, []byte("0x1111111111111111111111111111111111111111")) {
		t.Errorf("profile missing wallet address")
	}

	index, err := RenderIndex([]IndexEntry{
		{PieceID: "genesis-001", Title: "Threshold 001", AgentName: "vermeer", PriceUSDC: "0.10"},
		{PieceID: "genesis-002", Title: "Threshold 002", AgentName: "vermeer", Sold: true},
	})
	if err != nil {
		t.Fatalf("render index: %v", err)
	}
	if !bytes.Contains(index, []byte("art/genesis-001.html")) {
		t.Errorf("index missing artwork link")
	}
}

func TestFormatUSDC(t *testing.T) {
	cases := map[int64]string{
		100_000:   "0.10",
		1_000_000: "1.00",
		50_000:    "0.05",
		2_340_000: "2.34",
	}
	for units, want := range cases {
		if got := FormatUSDC(units); got != want {
			t.Errorf("FormatUSDC(%d) = %s, want %s", units, got, want)
		}
	}
}
