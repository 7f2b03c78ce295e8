// Elastic scaling controllers. A vertical controller watches one VM
// resource class and asks the broker to grow or shrink its capacity; a
// horizontal controller asks the broker to submit a fresh VM built by a
// supplier function. Controllers evaluate after processing updates, so
// their predicates always read post-update utilization.

package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// ResourceClass names a scalable VM resource.
type ResourceClass string

const (
	ResourceRam       ResourceClass = "ram"
	ResourceBandwidth ResourceClass = "bw"
	ResourcePes       ResourceClass = "pes"
)

// ValidResourceClass reports whether the class names a scalable
// resource.
func ValidResourceClass(class ResourceClass) bool {
	switch class {
	case ResourceRam, ResourceBandwidth, ResourcePes:
		return true
	default:
		return false
	}
}

// VmPredicate is a pure function of VM state.
type VmPredicate func(*Vm) bool

// VerticalScaleRequest asks the broker to change one resource of one
// VM by Amount (negative for down-scaling).
type VerticalScaleRequest struct {
	Vm       *Vm
	Resource ResourceClass
	Amount   float64
	Time     float64
}

// VerticalVmScaling scales a single resource class of a single VM.
// Binding a resource class and binding a VM are independent steps;
// binding an already-bound controller to a second VM is a configuration
// error.
type VerticalVmScaling struct {
	vm            *Vm
	resourceClass ResourceClass
	scalingFactor float64
	overload      VmPredicate
	underload     VmPredicate

	null bool
}

// VerticalVmScalingNull never matches and never issues requests.
var VerticalVmScalingNull = &VerticalVmScaling{null: true}

// NewVerticalVmScaling creates a controller for the given resource
// class. The scaling factor must be in [0,1]; the class must be valid.
// Both are configuration errors surfaced before simulation.
func NewVerticalVmScaling(class ResourceClass, scalingFactor float64, overload, underload VmPredicate) (*VerticalVmScaling, error) {
	if !ValidResourceClass(class) {
		return nil, fmt.Errorf("invalid resource class %q for vertical scaling", class)
	}
	if scalingFactor < 0 || scalingFactor > 1 {
		return nil, fmt.Errorf("vertical scaling factor %.2f outside [0,1]", scalingFactor)
	}
	return &VerticalVmScaling{
		resourceClass: class,
		scalingFactor: scalingFactor,
		overload:      overload,
		underload:     underload,
	}, nil
}

func (vs *VerticalVmScaling) ResourceClass() ResourceClass { return vs.resourceClass }
func (vs *VerticalVmScaling) ScalingFactor() float64       { return vs.scalingFactor }
func (vs *VerticalVmScaling) Vm() *Vm {
	if vs.vm == nil {
		return VmNull
	}
	return vs.vm
}

// SetVm binds the controller to a VM. A controller already bound to a
// different VM is rejected; this is a configuration error, not a
// runtime condition.
func (vs *VerticalVmScaling) SetVm(vm *Vm) error {
	if vs.null {
		return nil
	}
	if vs.vm != nil && vs.vm != vm {
		return fmt.Errorf("vertical scaling controller for %s already attached to vm %d", vs.resourceClass, vs.vm.ID())
	}
	vs.vm = vm
	return nil
}

// currentResourceAmount reads the bound resource's present size.
func (vs *VerticalVmScaling) currentResourceAmount() float64 {
	switch vs.resourceClass {
	case ResourceRam:
		return vs.vm.Ram().Capacity()
	case ResourceBandwidth:
		return vs.vm.Bw().Capacity()
	case ResourcePes:
		return float64(vs.vm.NumberOfPes())
	default:
		return 0
	}
}

// RequestScalingIfPredicateMatch evaluates the overload predicate, then
// the underload predicate, against current VM state. On a match it
// requests the broker to grow (or shrink) the bound resource by
// current × factor and returns true. With neither predicate holding it
// returns false with no side effect.
func (vs *VerticalVmScaling) RequestScalingIfPredicateMatch(now float64) bool {
	if vs.null || vs.vm == nil {
		return false
	}
	amount := vs.currentResourceAmount() * vs.scalingFactor
	if vs.overload != nil && vs.overload(vs.vm) {
		vs.vm.Broker().RequestResourceScaling(VerticalScaleRequest{
			Vm: vs.vm, Resource: vs.resourceClass, Amount: amount, Time: now,
		})
		return true
	}
	if vs.underload != nil && vs.underload(vs.vm) {
		vs.vm.Broker().RequestResourceScaling(VerticalScaleRequest{
			Vm: vs.vm, Resource: vs.resourceClass, Amount: -amount, Time: now,
		})
		return true
	}
	return false
}

// VmSupplier builds a fresh, not-yet-submitted VM for horizontal
// scaling.
type VmSupplier func() *Vm

// HorizontalVmScaling creates additional VM instances when its bound
// VM is overloaded.
type HorizontalVmScaling struct {
	vm       *Vm
	supplier VmSupplier
	overload VmPredicate

	null bool
}

// HorizontalVmScalingNull never matches and never issues requests.
var HorizontalVmScalingNull = &HorizontalVmScaling{null: true}

// NewHorizontalVmScaling creates a controller that submits the
// supplier's VM whenever the overload predicate holds. A nil supplier
// is a configuration error.
func NewHorizontalVmScaling(supplier VmSupplier, overload VmPredicate) (*HorizontalVmScaling, error) {
	if supplier == nil {
		return nil, fmt.Errorf("horizontal scaling requires a vm supplier")
	}
	return &HorizontalVmScaling{supplier: supplier, overload: overload}, nil
}

func (hs *HorizontalVmScaling) Vm() *Vm {
	if hs.vm == nil {
		return VmNull
	}
	return hs.vm
}

// SetVm binds the controller to a VM, rejecting rebinds like the
// vertical controller.
func (hs *HorizontalVmScaling) SetVm(vm *Vm) error {
	if hs.null {
		return nil
	}
	if hs.vm != nil && hs.vm != vm {
		return fmt.Errorf("horizontal scaling controller already attached to vm %d", hs.vm.ID())
	}
	hs.vm = vm
	return nil
}

// RequestScalingIfPredicateMatch submits a supplier-built VM through
// the broker when the overload predicate holds.
func (hs *HorizontalVmScaling) RequestScalingIfPredicateMatch(now float64) bool {
	if hs.null || hs.vm == nil {
		return false
	}
	if hs.overload == nil || !hs.overload(hs.vm) {
		return false
	}
	newVm := hs.supplier()
	if newVm == nil {
		logrus.Warnf("horizontal scaling supplier for vm %d returned no vm", hs.vm.ID())
		return false
	}
	hs.vm.Broker().SubmitVm(newVm, now)
	return true
}
