package fixture

import Foo "b.go"

func Run() {
	Foo()
}
