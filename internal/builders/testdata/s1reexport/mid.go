package fixture

import leaf "leaf.go"

// Target re-exports leaf.go's Target under mid.go's own export map.
type Target = leaf.Target
