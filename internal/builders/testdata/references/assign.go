package fixture

func Run() {
	value := 0
	value = value + 1
}

type Thing struct{}

func Build() {
	Thing()
}
