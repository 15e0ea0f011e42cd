package fixedprice

// Witness proves to the registry that a redemption was triggered by this
// strategy. The zero value is not authentic; only this package can produce
// one that is.
type Witness struct {
	seal *seal
}

type seal struct {
	strategy string
}

var fixedPriceSeal = &seal{strategy: Strategy}

func witness() Witness {
	return Witness{seal: fixedPriceSeal}
}

// Authentic reports whether w was issued by this package.
func (w Witness) Authentic() bool {
	return w.seal == fixedPriceSeal
}

// Strategy names the pricing strategy the witness speaks for.
func (w Witness) Strategy() string {
	if w.seal == nil {
		return ""
	}
	return w.seal.strategy
}
