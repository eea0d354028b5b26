package utils

// getHashedBucketForKey reduces a key into a bucket in range [0:100) using the
// classic polynomial rolling hash (h = h*31 + charCode) wrapped to a signed
// 32-bit integer, then taken as an absolute value. The same key always lands
// in the same bucket.
func getHashedBucketForKey(key string) int {
	var h int32
	for _, r := range key {
		h = h*31 + int32(r)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return int(v % 100)
}

func GetHashedBucketForKey(key string) int {
	return hashedBucketForKeyFunc(key)
}

var hashedBucketForKeyFunc = getHashedBucketForKey

// MockSetHashedBucketForKey replaces the bucket hash for tests.
// Passing nil restores the default implementation.
func MockSetHashedBucketForKey(fn func(string) int) {
	if fn == nil {
		hashedBucketForKeyFunc = getHashedBucketForKey
		return
	}
	hashedBucketForKeyFunc = fn
}
