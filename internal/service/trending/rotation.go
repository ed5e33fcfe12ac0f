// internal/service/trending/rotation.go

package trending

// DefaultRotationSize is the number of regions scraped per read
const DefaultRotationSize = 3

// Rotation picks which regions to scrape for a given hour so that the whole
// region list is covered over the day without scraping all of it at once
type Rotation struct {
	regions []string
	offset  int
	size    int
}

// NewRotation creates a rotation over regions. Size defaults to
// DefaultRotationSize when not positive.
func NewRotation(regions []string, offset, size int) *Rotation {
	if size <= 0 {
		size = DefaultRotationSize
	}

	r := make([]string, len(regions))
	copy(r, regions)

	return &Rotation{
		regions: r,
		offset:  offset,
		size:    size,
	}
}

// Regions returns every region in rotation order
func (r *Rotation) Regions() []string {
	out := make([]string, len(r.regions))
	copy(out, r.regions)
	return out
}

// Select returns the distinct regions at indices (hour+offset+i) mod N for
// i < size. Fewer regions are returned when N < size.
func (r *Rotation) Select(hour int) []string {
	n := len(r.regions)
	if n == 0 {
		return nil
	}

	count := r.size
	if count > n {
		count = n
	}

	selected := make([]string, 0, count)
	for i := 0; i < count; i++ {
		idx := ((hour+r.offset+i)%n + n) % n
		selected = append(selected, r.regions[idx])
	}
	return selected
}
