package fixture

// Target is the declaration two hops of re-export ultimately land on.
func Target() {}
