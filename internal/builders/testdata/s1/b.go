package fixture

// Foo is the declaration a.go's named import ultimately binds to.
func Foo() {}
