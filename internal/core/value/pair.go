package value

// Pair is an ordered key-value pair (spec §3), produced by the `:` operator
// and promoted to a Map by the optimizer's array-literal folding when every
// element of an array literal is a Pair (spec §4.4, §8 property 8).
type Pair struct {
	Key Value
	Val Value
}

func NewPair(k, v Value) *Pair { return &Pair{Key: k, Val: v} }

func (p *Pair) Kind() Kind    { return PairKind }
func (p *Pair) TypeID() int64 { return builtinTypeID(PairKind) }
func (p *Pair) Copy() Value   { return &Pair{Key: p.Key.Copy(), Val: p.Val.Copy()} }

func (p *Pair) Equal(o Value) bool {
	op, ok := o.(*Pair)
	return ok && p.Key.Equal(op.Key) && p.Val.Equal(op.Val)
}

func (p *Pair) Hash() uint64 {
	return p.Key.Hash()*31 + p.Val.Hash()
}

func (p *Pair) String() (string, error) { return "", ErrNoStringRepr }
