package fixture

import Target "mid.go"

func Run() {
	Target()
}
