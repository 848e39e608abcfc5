package fixture

import U "util.go"

func Run() {
	U.doIt()
}
