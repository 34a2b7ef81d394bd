package model

import "fmt"

// Copy returns a deep copy of obj attached to parent. The copy is created
// through Hooks.New and passes through the deserialize hooks, so objects
// that track their parent see the new one.
func Copy(obj Object, parent Object) (Object, error) {
	if obj == nil {
		return nil, nil
	}
	d := obj.Definition()
	out := d.NewObject()
	if err := d.BeforeDeserialize(out, parent); err != nil {
		return nil, err
	}
	for _, f := range d.Flags {
		out.Set(f.Name, obj.Get(f.Name))
	}
	if d.Value != nil {
		out.Set(d.Value.Name, obj.Get(d.Value.Name))
	}
	for _, m := range d.Model {
		v, err := CopyValue(m, obj.Get(m.Name), out)
		if err != nil {
			return nil, err
		}
		out.Set(m.Name, v)
	}
	if err := d.AfterDeserialize(out, parent); err != nil {
		return nil, err
	}
	return out, nil
}

// CopyValue deep-copies the value of inst, keeping its collection shape.
// Scalar items are immutable and shared.
func CopyValue(inst *Instance, v any, parent Object) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch inst.shape.Kind {
	case List:
		items := inst.shape.Items(v)
		out := make([]any, 0, len(items))
		for _, it := range items {
			c, err := copyItem(it, parent)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
		return out, nil
	case KeyedMap:
		m, ok := v.(*Map)
		if !ok {
			return nil, fmt.Errorf("%s: keyed value is %T, not *Map", inst.Name, v)
		}
		out := NewMap()
		var err error
		m.Each(func(k string, it any) bool {
			var c any
			if c, err = copyItem(it, parent); err != nil {
				return false
			}
			out.Put(k, c)
			return true
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	default:
		return copyItem(v, parent)
	}
}

func copyItem(v any, parent Object) (any, error) {
	if o, ok := v.(Object); ok {
		return Copy(o, parent)
	}
	return v, nil
}
