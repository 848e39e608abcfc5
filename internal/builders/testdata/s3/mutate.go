package fixture

func Run(x int) {
	items := []int{}
	items.push(x)
}
