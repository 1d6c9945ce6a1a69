package source

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestLoadAgePoints(t *testing.T) {
	path := writeFile(t, "ages.csv", ""+
		"id,name,status,lat,lon,year\n"+
		"1,a,ok,39.96,-83.00,1915\n"+
		"2,b,ok,39.97,-82.99,9999\n"+
		"3,c,ok,,-82.98,1940\n"+
		"4,d,ok,39.98,-82.97,1988\n")
	points, err := LoadAgePoints(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("LoadAgePoints: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2", len(points))
	}
	if points[0].Year != 1915 || points[0].Pos.X != -83.00 || points[0].Pos.Y != 39.96 {
		t.Errorf("first point wrong: %+v", points[0])
	}
	if points[1].Year != 1988 {
		t.Errorf("second point year = %d, want 1988", points[1].Year)
	}
}

func TestLoadAgePointsMissingFile(t *testing.T) {
	if _, err := LoadAgePoints("/nonexistent/ages.csv", zerolog.Nop()); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
