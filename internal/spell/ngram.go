package spell

// gramSizes returns the n-gram sizes a query term of length runes is looked
// up with. Longer terms use longer grams; sizes never drop below 1.
func gramSizes(length, base int) []int {
	var lo int
	switch {
	case length > 5:
		lo = base
	case length == 5:
		lo = base - 1
	default:
		lo = base - 2
	}
	lo = max(lo, 1)
	return []int{lo, lo + 1}
}

// indexSizes covers every size gramSizes can return for base, so a
// vocabulary term is found through any gram it shares with a query whatever
// the two lengths are.
func indexSizes(base int) []int {
	lo := max(base-2, 1)
	sizes := make([]int, 0, base+2-lo)
	for n := lo; n <= base+1; n++ {
		sizes = append(sizes, n)
	}
	return sizes
}

// grams returns the distinct overlapping substrings of the given sizes.
func grams(term []rune, sizes []int) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, n := range sizes {
		for i := 0; i+n <= len(term); i++ {
			g := string(term[i : i+n])
			if _, dup := seen[g]; dup {
				continue
			}
			seen[g] = struct{}{}
			out = append(out, g)
		}
	}
	return out
}

// dice is the Dice coefficient of two gram sets.
func dice(a, b []string) float64 {
	if len(a)+len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, g := range a {
		set[g] = struct{}{}
	}
	shared := 0
	for _, g := range b {
		if _, ok := set[g]; ok {
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(a)+len(b))
}
