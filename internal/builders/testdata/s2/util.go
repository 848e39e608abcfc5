package fixture

func doIt() {}
