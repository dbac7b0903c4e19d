package main

import (
	"compress/gzip"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

type zone struct {
	prefix string
	fee    float64
}

// generateSampleZones creates sample shipping zone files for local development.
// Each line maps a 5-character zip prefix to the zone's base shipping fee.
func main() {
	dataDir := "data/shipping"

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	zones := []zone{
		{"01310", 12.50}, // Sao Paulo - Paulista
		{"04538", 12.50}, // Sao Paulo - Itaim
		{"20040", 18.00}, // Rio de Janeiro - Centro
		{"30130", 22.00}, // Belo Horizonte
		{"40020", 28.00}, // Salvador
		{"60160", 32.00}, // Fortaleza
		{"69005", 45.00}, // Manaus
		{"80010", 24.00}, // Curitiba
		{"90010", 26.00}, // Porto Alegre
	}

	plainPath := filepath.Join(dataDir, "zones.csv")
	if err := writeZoneFile(plainPath, zones, false); err != nil {
		log.Fatalf("Failed to create %s: %v", plainPath, err)
	}
	fmt.Printf("Created %s with %d zones\n", plainPath, len(zones))

	gzipPath := filepath.Join(dataDir, "zones.csv.gz")
	if err := writeZoneFile(gzipPath, zones, true); err != nil {
		log.Fatalf("Failed to create %s: %v", gzipPath, err)
	}
	fmt.Printf("Created %s with %d zones\n", gzipPath, len(zones))

	fmt.Println("\nSample zone files created successfully!")
	fmt.Println("Point SHIPPING_ZONE_FILE at one of them, e.g.:")
	fmt.Printf("  SHIPPING_ZONE_FILE=%s\n", plainPath)
}

func writeZoneFile(filePath string, zones []zone, compress bool) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	var w io.Writer = file
	if compress {
		gzipWriter := gzip.NewWriter(file)
		defer gzipWriter.Close()
		w = gzipWriter
	}

	if _, err := fmt.Fprintln(w, "# zip_prefix,base_fee"); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, z := range zones {
		if _, err := fmt.Fprintf(w, "%s,%.2f\n", z.prefix, z.fee); err != nil {
			return fmt.Errorf("failed to write zone: %w", err)
		}
	}

	return nil
}
