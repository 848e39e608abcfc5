package fixture

type Widget struct{}

func Run(w Widget) Widget {
	return w
}

func RunExternal(u Unknown) {}
