// Package testutil provides a tiny fastText fixture model and helpers for
// writing vector files in tests.
//
// This package is intended for use in tests only.
//
// # Fixture Model
//
//	path := testutil.WriteFixture(t)           // plain .vec
//	path := testutil.WriteFixtureAs(t, ".gz")  // compressed copy
//
// The fixture has FixtureDim components, FixtureWords vocabulary words and
// three labels. The exported constants record the results a correct model
// produces for it.
//
// # Random Models
//
//	rng := testutil.NewRNG(seed)
//	path := testutil.WriteVec(t, rng.Rows(200, 16))
package testutil
