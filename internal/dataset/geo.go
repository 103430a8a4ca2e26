package dataset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"logistics-dashboard/internal/models"
)

const (
	geoFetchTimeout = 30 * time.Second
	maxGeoBytes     = 64 << 20
)

type GeoOptions struct {
	CodeKey string
	NameKey string
}

// ParseGeoRegions reads a GeoJSON FeatureCollection. Features without a code
// property or without a polygonal geometry are skipped.
func ParseGeoRegions(data []byte, opts GeoOptions) ([]models.GeoRegion, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}

	regions := make([]models.GeoRegion, 0, len(fc.Features))
	for _, f := range fc.Features {
		code := strings.ToUpper(strings.TrimSpace(property(f.Properties, opts.CodeKey)))
		if code == "" || f.Geometry == nil {
			continue
		}
		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			continue
		}
		name := property(f.Properties, opts.NameKey)
		if name == "" {
			name = code
		}
		regions = append(regions, models.GeoRegion{Code: code, Name: name, Geometry: f.Geometry})
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("geojson has no polygon features with a %q property", opts.CodeKey)
	}
	return regions, nil
}

// LoadGeo reads the boundary collection from a file path or an http(s) URL.
// A remote source is fetched once without retry.
func LoadGeo(ctx context.Context, source string, opts GeoOptions) ([]models.GeoRegion, error) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		data, err = fetch(ctx, source)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("load geo regions from %s: %w", source, err)
	}
	return ParseGeoRegions(data, opts)
}

func fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, geoFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxGeoBytes))
}

func property(props geojson.Properties, key string) string {
	switch v := props[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%g", v)
	}
	return ""
}
